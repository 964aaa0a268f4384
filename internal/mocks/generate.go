// Package mocks holds gomock doubles for the repository and use case ports.
//
// Regenerate after interface changes with:
//
//	go generate ./internal/mocks
package mocks

//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=user_repository_mock.go github.com/fastygo/catalog/repository UserRepository
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=product_repository_mock.go github.com/fastygo/catalog/repository ProductRepository
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=password_hasher_mock.go github.com/fastygo/catalog/usecase PasswordHasher
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=operation_buffer_mock.go github.com/fastygo/catalog/usecase OperationBuffer
