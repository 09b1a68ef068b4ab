// Package host is the declarative HTTP application the bridge exposes.
//
// # Overview
//
// An App is a route table of Operations. Each operation declares its method,
// path template, route and query parameter descriptors, an optional body
// type, and an optional tool-eligibility marker. Registration composes a
// filter pipeline around the handler:
//
//	recovery -> body limit -> correlation -> logging -> app filters ->
//	identity -> operation filters -> authorization -> binding -> handler
//
// # Real and synthetic traffic
//
// The same composed pipeline serves two kinds of traffic. Real inbound
// requests are routed by ServeHTTP through a standard ServeMux. Synthetic
// requests built by the bridge skip routing and enter through Invoke; they
// carry their path values via Request.SetPathValue, so binding, validation,
// and authorization cannot tell the two apart.
//
// # Declaring operations
//
//	app.Register(&host.Operation{
//	    Method: "GET",
//	    Path:   "/orders/{id}",
//	    Params: []host.Param{
//	        {Name: "id", Kind: host.ParamRoute, Type: host.TypeInteger},
//	    },
//	    Tool:    &host.ToolMeta{Name: "get_order"},
//	    Handler: http.HandlerFunc(getOrder),
//	})
//
// Operations without a Tool marker are served normally but never exposed as
// tools. Controllers group related operations and are registered in one call
// with Mount.
//
// # Validation
//
// The binding filter converts and validates parameters before the handler
// runs: route parameters are always required, query parameters follow their
// Required flag, and body fields follow the `validate` struct tag (required,
// pattern, min, max, minLength, maxLength). Failures answer 400 with the
// offending parameter named.
package host
