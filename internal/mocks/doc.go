// Package mocks provides centralized mock implementations for testing.
//
// Each mock is a struct with one function field per interface method plus
// default return values used when the field is nil.
//
// Usage:
//
//	import "github.com/phrazzld/todo-api/internal/mocks"
//
//	func TestSomething(t *testing.T) {
//	    tokens := &mocks.MockJWTService{
//	        ValidateTokenFn: func(ctx context.Context, token string) (*auth.Claims, error) {
//	            return &auth.Claims{UserID: userID, Role: domain.RoleUser}, nil
//	        },
//	    }
//
//	    // Use the mock in your test...
//	}
package mocks
