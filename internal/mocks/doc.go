// Package mocks provides shared test doubles for the store interfaces and the
// infrastructure collaborators the services depend on.
//
// Most mocks are function-field structs backed by a small in-memory default,
// so a test only overrides the calls it cares about:
//
//	subjects := mocks.NewMockSubjectStore()
//	subjects.DeleteFn = func(ctx context.Context, id uuid.UUID) error {
//	    return store.ErrReferenced
//	}
//
// TestifyMockUserStore is the exception; it uses testify/mock expectations
// for tests that assert on exact call sequences.
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Implement the mock struct with function fields for each interface method
//  3. Give it an in-memory default where one is cheap
package mocks
