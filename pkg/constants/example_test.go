package constants_test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/matt653/high-life-auto-sub000/pkg/constants"
)

// Example demonstrates using constants for common operations
func Example() {
	dir, err := os.MkdirTemp("", "inventory-example")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "feeds.yaml")
	if err := os.WriteFile(file, []byte("feeds: []"), constants.FilePermissions); err != nil {
		panic(err)
	}

	fmt.Printf("Created file with %o permissions\n", constants.FilePermissions)
	// Output:
	// Created file with 644 permissions
}

// Example_timeouts demonstrates timeout constants
func Example_timeouts() {
	client := &http.Client{
		Timeout: constants.DefaultHTTPTimeout,
	}
	fmt.Printf("Feed fetch timeout: %v\n", client.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), constants.ResolveDeadline)
	defer cancel()

	deadline, _ := ctx.Deadline()
	fmt.Println("Resolve has deadline:", !deadline.IsZero())
	fmt.Printf("Enhancement timeout: %v\n", constants.EnhancementTimeout)

	// Output:
	// Feed fetch timeout: 30s
	// Resolve has deadline: true
	// Enhancement timeout: 5s
}
