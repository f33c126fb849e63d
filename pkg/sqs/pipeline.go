package sqs

// Middleware wraps a ConsumerFunc.
type Middleware func(ConsumerFunc) ConsumerFunc

// Chain returns a Middlewares type from a slice of middlewares.
func Chain(middlewares ...Middleware) Middlewares {
	return Middlewares(middlewares)
}

// Middlewares type is a slice of consumer middlewares with methods to compose
// middleware chains around a ConsumerFunc.
type Middlewares []Middleware

// Then builds a ConsumerFunc from the chain of middlewares, with fn as the
// final handler. The first middleware is the outermost one.
func (mws Middlewares) Then(fn ConsumerFunc) ConsumerFunc {
	// Return ahead of time if there aren't any middlewares for the chain
	if len(mws) == 0 {
		return fn
	}

	// Wrap the end handler with the middleware chain
	h := mws[len(mws)-1](fn)
	for i := len(mws) - 2; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
