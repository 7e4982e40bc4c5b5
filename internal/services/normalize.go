package services

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/linesync/internal/models"
	"github.com/google/uuid"
)

// recordNamespace seeds synthesized record IDs so identical rows always get the same ID.
var recordNamespace = uuid.MustParse("6f1c2a9e-3b7d-4c55-9a0e-2d8f4b1c7e63")

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// countryPrefixes maps E.164 calling codes to ISO 3166 alpha-2 codes. NANP resolves to US.
var countryPrefixes = map[string]string{
	"1": "US", "7": "RU",
	"20": "EG", "27": "ZA", "30": "GR", "31": "NL", "32": "BE", "33": "FR", "34": "ES", "36": "HU",
	"39": "IT", "40": "RO", "41": "CH", "43": "AT", "44": "GB", "45": "DK", "46": "SE", "47": "NO",
	"48": "PL", "49": "DE", "51": "PE", "52": "MX", "54": "AR", "55": "BR", "56": "CL", "57": "CO",
	"60": "MY", "61": "AU", "62": "ID", "63": "PH", "64": "NZ", "65": "SG", "66": "TH", "81": "JP",
	"82": "KR", "84": "VN", "86": "CN", "90": "TR", "91": "IN", "92": "PK",
	"351": "PT", "352": "LU", "353": "IE", "354": "IS", "356": "MT", "357": "CY", "358": "FI",
	"359": "BG", "370": "LT", "371": "LV", "372": "EE", "380": "UA", "381": "RS", "385": "HR",
	"386": "SI", "420": "CZ", "421": "SK", "852": "HK", "886": "TW", "966": "SA", "971": "AE",
	"972": "IL", "974": "QA",
}

// fields is one raw response object.
type fields map[string]any

// normalizer maps one raw object into a family's canonical record.
type normalizer func(fields) models.Record

var normalizers = map[Family]normalizer{
	FamilyAccount:    normalizeAccount,
	FamilyCalls:      normalizeCall,
	FamilyRecordings: normalizeRecording,
	FamilyPersonalNumbers: func(f fields) models.Record {
		return normalizePhoneNumber(f, models.NumberPersonal)
	},
	FamilyPlatformNumbers: func(f fields) models.Record {
		return normalizePhoneNumber(f, models.NumberPlatform)
	},
}

func normalizeCall(f fields) models.Record {
	c := models.CallRecord{
		ID:              f.str("id", "call_id", "uuid", "uniqueid", "cdr_id"),
		ContactName:     f.str("contact_name", "contactName", "name", "caller_name", "cnam"),
		Number:          canonicalNumber(f.str("number", "phone_number", "phnum", "remote_number", "caller_id", "destination", "dst")),
		Direction:       directionOf(f),
		StartedAt:       f.timestamp("started_at", "start_time", "startTime", "calldate", "date", "created_at", "timestamp"),
		DurationSeconds: f.seconds("duration", "duration_seconds", "secs", "billsec", "length"),
		Status:          f.str("status", "disposition"),
		RecordingURL:    f.str("recording_url", "recordingUrl", "recording", "record_url"),
	}
	if c.ID == "" {
		c.ID = synthesizeID(FamilyCalls, c.Number, stamp(c.StartedAt), strconv.Itoa(c.DurationSeconds), string(c.Direction))
	}
	return c
}

func normalizeRecording(f fields) models.Record {
	r := models.Recording{
		ID:              f.str("id", "recording_id", "uuid", "file_id"),
		CallID:          f.str("call_id", "cdr_id", "uniqueid"),
		Number:          canonicalNumber(f.str("number", "phone_number", "phnum", "caller_id", "destination")),
		URL:             f.str("url", "recording_url", "download_url", "file", "link"),
		CreatedAt:       f.timestamp("created_at", "date", "calldate", "timestamp", "start_time"),
		DurationSeconds: f.seconds("duration", "secs", "length", "billsec"),
	}
	if r.ID == "" {
		r.ID = synthesizeID(FamilyRecordings, r.URL, r.CallID, stamp(r.CreatedAt))
	}
	return r
}

func normalizePhoneNumber(f fields, kind models.NumberKind) models.Record {
	p := models.PhoneNumber{
		ID:       f.str("id", "number_id", "did_id", "uuid"),
		Number:   canonicalNumber(f.str("number", "phone_number", "phnum", "did", "e164", "msisdn")),
		Location: f.str("location", "city", "region", "area", "locality"),
		Label:    f.str("label", "name", "description", "friendly_name", "alias"),
		Kind:     kind,
	}

	if country := strings.ToUpper(f.str("country", "country_code", "iso_country", "iso")); len(country) == 2 && isAlpha(country) {
		p.Country = country
	} else {
		p.Country = countryFor(p.Number)
	}

	if p.Label == "" {
		p.Label = p.Location
	}
	if p.Label == "" {
		p.Label = p.Number
	}
	if p.ID == "" {
		p.ID = p.Number
	}
	if p.ID == "" {
		p.ID = synthesizeID(FamilyPersonalNumbers, string(kind), p.Label, p.Location)
	}
	return p
}

func normalizeAccount(f fields) models.Record {
	a := models.Account{
		UserID:    f.str("user_id", "userId", "id", "uid"),
		AccountID: f.integer("account_id", "acc_id", "accountId", "customer_id"),
		Email:     f.str("email", "user_name", "username", "login"),
		Name:      f.str("name", "full_name", "display_name"),
		Balance:   f.decimal("balance", "credit", "funds"),
		Currency:  strings.ToUpper(f.str("currency", "currency_code")),
		Source:    models.AccountFromAPI,
	}
	if a.Name == "" {
		a.Name = strings.TrimSpace(f.str("first_name") + " " + f.str("last_name"))
	}
	return a
}

// str returns the first non-empty value among keys.
func (f fields) str(keys ...string) string {
	for _, key := range keys {
		if s := stringValue(f[key]); s != "" {
			return s
		}
	}
	return ""
}

func (f fields) integer(keys ...string) int64 {
	for _, key := range keys {
		if s := stringValue(f[key]); s != "" {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
			if fl, err := strconv.ParseFloat(s, 64); err == nil {
				return int64(fl)
			}
		}
	}
	return 0
}

func (f fields) decimal(keys ...string) float64 {
	for _, key := range keys {
		if s := stringValue(f[key]); s != "" {
			if fl, err := strconv.ParseFloat(s, 64); err == nil {
				return fl
			}
		}
	}
	return 0
}

// timestamp returns the first value among keys that parses as a timestamp, in UTC.
func (f fields) timestamp(keys ...string) time.Time {
	for _, key := range keys {
		if t, ok := parseTime(f[key]); ok {
			return t
		}
	}
	return time.Time{}
}

// seconds returns the first value among keys that parses as a duration in whole seconds.
func (f fields) seconds(keys ...string) int {
	for _, key := range keys {
		if n, ok := parseSeconds(stringValue(f[key])); ok {
			return n
		}
	}
	return 0
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}

func parseTime(v any) (time.Time, bool) {
	s := stringValue(v)
	if s == "" {
		return time.Time{}, false
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return unixTime(n)
	}
	if fl, err := strconv.ParseFloat(s, 64); err == nil {
		return unixTime(int64(fl))
	}

	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func unixTime(n int64) (time.Time, bool) {
	switch {
	case n <= 0:
		return time.Time{}, false
	case n > 1e12:
		return time.UnixMilli(n).UTC(), true
	default:
		return time.Unix(n, 0).UTC(), true
	}
}

// parseSeconds accepts whole or fractional seconds and "mm:ss" or "hh:mm:ss" clocks.
func parseSeconds(s string) (int, bool) {
	if s == "" {
		return 0, false
	}

	if strings.Contains(s, ":") {
		parts := strings.Split(s, ":")
		if len(parts) > 3 {
			return 0, false
		}
		total := 0
		for _, part := range parts {
			n, err := strconv.Atoi(part)
			if err != nil || n < 0 {
				return 0, false
			}
			total = total*60 + n
		}
		return total, true
	}

	fl, err := strconv.ParseFloat(s, 64)
	if err != nil || fl < 0 {
		return 0, false
	}
	return int(fl), true
}

func directionOf(f fields) models.Direction {
	for _, key := range []string{"direction", "type", "disposition"} {
		if d := parseDirection(f.str(key)); d != models.DirectionUnknown {
			return d
		}
	}
	return models.DirectionUnknown
}

func parseDirection(s string) models.Direction {
	s = strings.ToLower(strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(s)))
	switch s {
	case "in", "inbound", "incoming", "received":
		return models.DirectionInbound
	case "out", "outbound", "outgoing", "dialed", "placed":
		return models.DirectionOutbound
	case "missed", "no answer", "noanswer", "unanswered", "not answered":
		return models.DirectionMissed
	default:
		return models.DirectionUnknown
	}
}

// canonicalNumber strips formatting and rewrites an international "00" prefix to "+".
// Values with no digits are returned trimmed.
func canonicalNumber(raw string) string {
	raw = strings.TrimSpace(raw)

	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}

	s := b.String()
	if strings.TrimPrefix(s, "+") == "" {
		return raw
	}
	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	}
	return s
}

// countryFor resolves the ISO country of an E.164 number by longest calling-code prefix.
func countryFor(number string) string {
	if !strings.HasPrefix(number, "+") {
		return ""
	}
	digits := number[1:]
	for n := 3; n >= 1; n-- {
		if len(digits) < n {
			continue
		}
		if country, ok := countryPrefixes[digits[:n]]; ok {
			return country
		}
	}
	return ""
}

func synthesizeID(family Family, parts ...string) string {
	return uuid.NewSHA1(recordNamespace, []byte(string(family)+"|"+strings.Join(parts, "|"))).String()
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
