// Package mocks provides gomock implementations of the workmarket ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	events := mocks.NewMockJobEventRepository(ctrl)
//	events.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
package mocks

// Storage ports.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_event_repository_mock.go github.com/target/workmarket/internal/core JobEventRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_store_mock.go github.com/target/workmarket/internal/core JobStore
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=ledger_repository_mock.go github.com/target/workmarket/internal/core LedgerRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=note_repository_mock.go github.com/target/workmarket/internal/core NoteRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=mark_store_mock.go github.com/target/workmarket/internal/core MarkStore

// Outbound ports: observers, sandbox and external judge.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=broadcaster_mock.go github.com/target/workmarket/internal/core Broadcaster
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=code_runner_mock.go github.com/target/workmarket/internal/core CodeRunner
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=judge_mock.go github.com/target/workmarket/internal/core Judge
