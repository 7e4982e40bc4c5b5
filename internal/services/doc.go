// Package services resolves platform resources over HTTP.
//
// # Endpoint Resolution
//
// The platform serves each resource family (account, calls, recordings, personal and platform numbers)
// from one of several undocumented routes. [DefaultEndpoints] lists the candidates per [Family] in order.
// [Resolver.Fetch] walks them and stops at the first 2xx whose body matches the candidate's [Shape]:
//   - 401 : one token refresh through [TokenSource], then the same candidate again
//   - 403, 404, other statuses, transport failures, unparsable bodies : next candidate
//   - nothing left : [ResolutionError] with kind [AllEndpointsExhausted], or [DecodeFailed] when every
//     reachable candidate answered 2xx but none parsed
//
// # Response Shapes
//
// Bodies are decoded once and tagged as an envelope ({resource, status, response}) or a bare array/object.
// Lists nested in objects are found under the candidate's ListKeys. An envelope status of "error" is unparsable.
//
// # Normalization
//
// Each family accepts several field names per value and takes the first non-empty one.
// Country is derived from the E.164 calling code, label falls back to location then number,
// direction is read from direction, type or disposition, durations accept seconds or "mm:ss",
// and timestamps accept RFC3339, "2006-01-02 15:04:05" or unix seconds. Records without an ID get a
// deterministic name-based UUID.
//
// # Transport
//
// [APIService] adds bearer authorization, an X-Request-ID per request, a per-request timeout and a rate limit.
package services
