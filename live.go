package coldcache

import "context"

// The live layer is the authority. coldcache only consumes it: a
// subscription delivers nil-while-loading then the encoded payload, re-fired
// on every upstream change. How the layer talks to its backend is its own
// business.

// Skip tells a binding "we know there is nothing to fetch" - the caller is
// not authorized yet, or nothing is selected. It is a first-class sentinel
// so intent is distinguishable from "args not decided yet"; nil args are
// ordinary (hash to their own key) and never mean skip.
var Skip skipSentinel

type skipSentinel struct{}

// Subscription is a handle to one live query binding.
type Subscription interface {
	Close()
}

// PaginatedSubscription additionally owns the live pagination cursor.
// LoadMore asks the live layer for n more items; coldcache never paginates
// a cached snapshot itself.
type PaginatedSubscription interface {
	Subscription
	LoadMore(n int)
}

// PageStatus mirrors the live pagination layer's view of the cursor.
type PageStatus string

const (
	PageLoadingFirstPage PageStatus = "LoadingFirstPage"
	PageCanLoadMore      PageStatus = "CanLoadMore"
	PageExhausted        PageStatus = "Exhausted"
)

// Page is one delivery from a live paginated subscription. Results are the
// encoded items in server order for the pages loaded so far.
type Page struct {
	Results   [][]byte
	Status    PageStatus
	IsLoading bool
}

// PageOpts configure a paginated subscription. They participate in key
// derivation: the same query with a different page shape is a different
// snapshot.
type PageOpts struct {
	InitialNumItems int `cbor:"initialNumItems"`
}

// LiveClient is the live query/subscription layer.
//
// Subscribe must invoke deliver with (nil, false) only while loading and
// (payload, true) for every value thereafter, in emission order for a given
// subscription. The first deliver call may happen synchronously from inside
// Subscribe.
//
// Mutate runs a server-side mutation; optimistic local effects are layered
// on top by Mutator, never by the live layer.
type LiveClient interface {
	Subscribe(identity string, args any, deliver func(payload []byte, loaded bool)) (Subscription, error)
	SubscribePaginated(identity string, args any, opts PageOpts, deliver func(Page)) (PaginatedSubscription, error)
	Mutate(ctx context.Context, name string, args any) ([]byte, error)
}

// AuthState is the enclosing session's handshake state, probed by paginated
// bindings so a signed-in user never sees a false "no items" flash while the
// session is still being established.
type AuthState int

const (
	// AuthEstablishing: handshake in flight; report synthetic loading.
	AuthEstablishing AuthState = iota
	// AuthSignedIn: session established.
	AuthSignedIn
	// AuthSignedOut: definitively no session; an empty list is deliberate.
	AuthSignedOut
)

// AuthProbe reports the current session state. nil probes mean AuthSignedIn.
type AuthProbe func() AuthState
