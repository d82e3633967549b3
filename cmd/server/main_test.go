package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macrolens/foodrecon/config"
	"github.com/macrolens/foodrecon/internal/domain"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "search", "resolve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "macrolens", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "", flag.DefValue)
}

func TestParseHouseholdFlags(t *testing.T) {
	units, err := parseHouseholdFlags([]string{"1 can=368.1", " cup = 240 "})
	require.NoError(t, err)
	assert.Equal(t, []domain.HouseholdUnit{{Label: "1 can", Grams: 368.1}, {Label: "cup", Grams: 240}}, units)

	for _, bad := range []string{"cup", "cup=lots", "cup=0", "=12"} {
		_, err := parseHouseholdFlags([]string{bad})
		assert.Error(t, err, bad)
	}
}

func runRoot(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestResolveCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "servings",
			args: []string{"resolve", "--quantity", "2", "--unit", "serving", "--grams-per-serving", "30"},
			want: "60.00 g\n",
		},
		{
			name: "household",
			args: []string{"resolve", "--quantity", "1", "--unit", "1 CAN", "--household", "1 can=368.1"},
			want: "368.10 g\n",
		},
		{
			name: "volume without density",
			args: []string{"resolve", "--quantity", "250", "--unit", "ml"},
			want: "unresolved\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(func() {
				resolveQuantity, resolveUnit, resolveHousehold = 1, "g", nil
				resolveGramsPerServing, resolveDensity = 0, 0
				for _, name := range []string{"quantity", "unit", "grams-per-serving", "density", "household"} {
					resolveCmd.Flags().Lookup(name).Changed = false
				}
			})
			assert.Equal(t, tt.want, runRoot(t, tt.args...))
		})
	}
}

func TestInitCatalog_Mock(t *testing.T) {
	c := &config.Config{
		Catalog: config.CatalogConfig{Mode: config.CatalogMock},
		Cache:   config.CacheConfig{Type: "memory", MaxAge: time.Hour, MaxSize: 10},
	}
	env, err := initCatalog(context.Background(), c)
	require.NoError(t, err)
	defer env.Close()

	foods, err := env.Catalog.Search(context.Background(), "yogurt")
	require.NoError(t, err)
	require.Len(t, foods, 1)

	raw, err := json.Marshal(foods[0])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"gid":"fdc:1002"`)
	assert.Equal(t, 1, env.Results.Stats().Searches)
}

func TestInitCatalog_BadRedisURL(t *testing.T) {
	c := &config.Config{
		Catalog: config.CatalogConfig{Mode: config.CatalogRemote},
		Cache:   config.CacheConfig{Type: "redis", RedisURL: "not a url", MaxAge: time.Hour, MaxSize: 10},
	}
	_, err := initCatalog(context.Background(), c)
	assert.Error(t, err)
}
