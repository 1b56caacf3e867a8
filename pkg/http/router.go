package xhttp

import "github.com/fasthttp/router"

type Router = router.Router

// CreateDefaultRouter returns the router every Engine starts with. Trailing
// slash and case mistakes redirect to the registered path, unknown paths get
// 404 and registered paths called with another method get 405.
func CreateDefaultRouter() *Router {
	r := router.New()
	r.RedirectFixedPath = true
	r.RedirectTrailingSlash = true
	r.SaveMatchedRoutePath = true
	r.HandleOPTIONS = false
	r.HandleMethodNotAllowed = true
	r.NotFound = NotFoundHandler
	r.MethodNotAllowed = MethodNotAllowedHandler
	return r
}

func NotFoundHandler(ctx *RequestCtx) {
	ctx.Error(StatusText(StatusNotFound), StatusNotFound)
}

// MethodNotAllowedHandler keeps the Allow header the router has already set,
// so it must not go through ctx.Error.
func MethodNotAllowedHandler(ctx *RequestCtx) {
	ctx.SetStatusCode(StatusMethodNotAllowed)
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString(StatusText(StatusMethodNotAllowed))
}
