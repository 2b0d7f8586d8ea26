// Package http provides request and response helpers for JSON endpoints.
//
//	req := gohttp.NewRequest(r)
//	v := req.Validate(validation.Rules{"scope": "nullable|in:prototype,singleton"})
//
//	res := gohttp.NewResponse(w)
//	if v.Fails() {
//	    res.ValidationError(v.Errors()) // 422 {"errors": {"scope": ["..."]}}
//	    return
//	}
//	res.Success(items)                  // 200 {"data": [...]}
//	res.NotFound()                      // 404 {"message": "Not found."}
package http
