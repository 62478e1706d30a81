package dbtcloud

import (
	"fmt"
	"net/http"
)

const errorBodyLimit = 200

// ApiError is returned when a request failed with an HTTP status >= 400 and all retries are exhausted.
type ApiError struct {
	StatusCode int
	Body       string
	Method     string
	URL        string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("dbt Cloud API error %d: %s", e.StatusCode, truncate(e.Body, errorBodyLimit))
}

func (e *ApiError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

func (e *ApiError) IsForbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

func (e *ApiError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
