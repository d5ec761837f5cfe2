package errors_test

import (
	"fmt"
	"net/http"

	"github.com/matt653/high-life-auto-sub000/pkg/errors"
)

// Example demonstrates basic error creation and checking.
func Example() {
	err := &errors.NotFoundError{
		Resource: "vehicle",
		ID:       "1G1JC12345",
	}

	if errors.IsNotFound(err) {
		fmt.Println("Vehicle not found")
	}

	// Output: Vehicle not found
}

// Example_fetchError shows how a failed feed download is classified.
func Example_fetchError() {
	err := errors.NewFetchError("main-lot", "https://example.com/inventory.csv", http.StatusBadGateway, "bad gateway")

	if errors.IsFeedUnavailable(err) {
		fmt.Printf("feed %s unavailable (status %d)\n", err.Source, err.StatusCode)
	}

	// Output: feed main-lot unavailable (status 502)
}

// Example_hTTPStatusMapping maps typed errors to HTTP status codes.
func Example_hTTPStatusMapping() {
	toStatus := func(err error) int {
		switch {
		case errors.IsNotFound(err):
			return http.StatusNotFound
		case errors.IsValidationError(err):
			return http.StatusBadRequest
		case errors.IsStoreUnavailable(err):
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}

	fmt.Println(toStatus(errors.NewNotFoundError("vehicle", "A1")))
	fmt.Println(toStatus(errors.NewValidationError("identity", "", "required")))
	fmt.Println(toStatus(errors.NewStoreError("redis", "put", "A1", fmt.Errorf("refused"))))

	// Output:
	// 404
	// 400
	// 503
}
