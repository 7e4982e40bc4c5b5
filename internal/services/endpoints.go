package services

// Family is a category of remote data with one normalized shape and several candidate routes.
type Family string

const (
	FamilyAccount         Family = "account"
	FamilyCalls           Family = "calls"
	FamilyRecordings      Family = "recordings"
	FamilyPersonalNumbers Family = "personal_numbers"
	FamilyPlatformNumbers Family = "platform_numbers"
)

// Families lists every family in probe order.
func Families() []Family {
	return []Family{FamilyAccount, FamilyCalls, FamilyRecordings, FamilyPersonalNumbers, FamilyPlatformNumbers}
}

// Shape is the response layout a candidate is expected to answer with.
type Shape int

const (
	// ShapeEnvelope is {"resource": ..., "status": ..., "response": ...}.
	ShapeEnvelope Shape = iota
	// ShapeBare is a top-level array or object.
	ShapeBare
)

func (s Shape) String() string {
	switch s {
	case ShapeEnvelope:
		return "envelope"
	case ShapeBare:
		return "bare"
	default:
		return "unknown"
	}
}

// Candidate is one route that may serve a family.
//
// ListKeys name the object fields that may carry the list, in priority order.
type Candidate struct {
	Path     string
	Shape    Shape
	ListKeys []string
}

// EndpointTable maps each family to its candidates in the order they are tried.
type EndpointTable map[Family][]Candidate

var (
	callListKeys      = []string{"calls", "items", "records", "data", "list"}
	recordingListKeys = []string{"recordings", "items", "records", "data", "list"}
	numberListKeys    = []string{"numbers", "phone_numbers", "phnums", "items", "data", "list"}
)

// DefaultEndpoints is the candidate table for the platform.
var DefaultEndpoints = EndpointTable{
	FamilyAccount: {
		{Path: "/v1/account", Shape: ShapeEnvelope, ListKeys: []string{"account", "user"}},
		{Path: "/v1/user/me", Shape: ShapeBare, ListKeys: []string{"user"}},
		{Path: "/api/account/info", Shape: ShapeEnvelope, ListKeys: []string{"account", "info"}},
	},
	FamilyCalls: {
		{Path: "/v1/usage/calls", Shape: ShapeEnvelope, ListKeys: callListKeys},
		{Path: "/v1/calls", Shape: ShapeBare, ListKeys: callListKeys},
		{Path: "/v1/statistics/pbx", Shape: ShapeEnvelope, ListKeys: []string{"cdr", "calls", "items"}},
		{Path: "/api/call-history", Shape: ShapeBare, ListKeys: []string{"history", "calls", "items"}},
		{Path: "/v2/usage-records", Shape: ShapeEnvelope, ListKeys: []string{"usage_records", "records", "items"}},
	},
	FamilyRecordings: {
		{Path: "/v1/recordings", Shape: ShapeEnvelope, ListKeys: recordingListKeys},
		{Path: "/v1/calls/recordings", Shape: ShapeBare, ListKeys: recordingListKeys},
		{Path: "/api/recordings", Shape: ShapeBare, ListKeys: recordingListKeys},
	},
	FamilyPersonalNumbers: {
		{Path: "/v1/account/numbers", Shape: ShapeEnvelope, ListKeys: numberListKeys},
		{Path: "/v1/user/phone-numbers", Shape: ShapeBare, ListKeys: numberListKeys},
		{Path: "/api/numbers/mine", Shape: ShapeBare, ListKeys: numberListKeys},
	},
	FamilyPlatformNumbers: {
		{Path: "/v1/numbers", Shape: ShapeEnvelope, ListKeys: numberListKeys},
		{Path: "/v1/platform/phone-numbers", Shape: ShapeBare, ListKeys: numberListKeys},
		{Path: "/api/numbers", Shape: ShapeBare, ListKeys: numberListKeys},
	},
}

// single reports whether the family resolves to one object rather than a list.
func (f Family) single() bool {
	return f == FamilyAccount
}
