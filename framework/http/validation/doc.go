// Package validation validates flat string maps with pipe-separated rules.
//
// It checks configuration values read from the environment and query
// parameters of the inspector API.
//
// # Basic Usage
//
//	v := validation.Make(map[string]string{
//	    "scope": r.URL.Query().Get("scope"),
//	}, validation.Rules{
//	    "scope": "nullable|in:prototype,singleton,singleton_weak",
//	})
//
//	if v.Fails() {
//	    // v.Errors() returns *Errors with Bag map[string][]string
//	    // JSON: {"errors": {"field": ["message1", "message2"]}}
//	}
//
// # Available Rules
//
//   - required        field must be present and non-empty
//   - nullable        an empty value skips the remaining rules
//   - sometimes       skips all rules silently if field is absent
//   - min:n / max:n   UTF-8 length bounds
//   - integer         parseable as int
//   - boolean         accepted by strconv.ParseBool
//   - url             must start with http:// or https://
//   - address         host:port, host may be empty (":8080")
//   - in:a,b,c        value must be in the list
//   - not_in:a,b,c    value must NOT be in the list
//   - alpha_dash      letters, numbers, dashes, underscores
//   - regex:pattern   must match regexp pattern
//
// Validation stops at the first failing rule of each field. *Errors
// implements error, so Validate can be returned directly.
package validation
