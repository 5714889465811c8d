// Package service contains the application use cases: registration and
// login (UserService) and the task lifecycle engine (TaskService).
//
// Services depend on the repository interfaces of package store and never
// on a concrete driver. Authorization of task operations is a Policy over
// {principal, action, task}; the default is OwnerOnlyPolicy.
//
// Errors are sentinels (ErrForbidden, ErrInvalidCredentials) or come from
// the domain and store layers, wrapped with %w so callers can use errors.Is
// and errors.As. Storage timeouts always surface as
// store.ErrStorageUnavailable.
package service
