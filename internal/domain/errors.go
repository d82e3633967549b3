package domain

import "errors"

var (
	// ErrProductNotFound is returned when neither catalog knows the requested food
	ErrProductNotFound = errors.New("product not found in catalog")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache or has expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrUSDAAPIFailure is returned when a FoodData Central request fails
	ErrUSDAAPIFailure = errors.New("USDA API request failed")

	// ErrOpenFoodFactsFailure is returned when an Open Food Facts request fails
	ErrOpenFoodFactsFailure = errors.New("Open Food Facts request failed")

	// ErrSuperseded is returned when a newer request from the same session
	// finished first and this result was dropped
	ErrSuperseded = errors.New("request superseded by a newer one")

	// ErrReferenceNotFound is returned when a stored food reference does not exist
	ErrReferenceNotFound = errors.New("food reference not found")

	// ErrInvalidHouseholdUnit is returned for household units without a label or positive weight
	ErrInvalidHouseholdUnit = errors.New("household unit requires a label and grams > 0")
)
