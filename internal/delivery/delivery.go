// Package delivery defines the contract every transport (HTTP today) fulfills
// so the application can start them uniformly.
package delivery

import "context"

// Delivery is a transport endpoint the application serves on.
type Delivery interface {
	Serve(ctx context.Context) error
}
