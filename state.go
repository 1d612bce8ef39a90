package varycache

import (
	"context"
	"net/http"
)

// storeState is the single piece of request-scoped state shared by the two
// phases: whether the response should be stored after generation. It is set
// exactly once by the fetch phase and consumed by the update phase.
type storeState struct {
	shouldStore bool
}

type stateContextKey struct{}

// withStoreState attaches fresh store state to the request, returning the
// derived request and the state. If state is already attached, the request
// is returned unchanged.
func withStoreState(r *http.Request) (*http.Request, *storeState) {
	if st := storeStateFor(r); st != nil {
		return r, st
	}
	st := &storeState{}
	return r.WithContext(context.WithValue(r.Context(), stateContextKey{}, st)), st
}

func storeStateFor(r *http.Request) *storeState {
	st, _ := r.Context().Value(stateContextKey{}).(*storeState)
	return st
}

// ShouldStore reports whether the fetch phase has requested a store for
// this request. It is false before Lookup has run.
func ShouldStore(r *http.Request) bool {
	st := storeStateFor(r)
	return st != nil && st.shouldStore
}
