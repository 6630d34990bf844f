// Package headers defines the wire format shared by Jarvis services for
// app-to-app calls: the credential header pair that authenticates the calling
// service and the X-Context-* headers that propagate the originating
// end-user request context.
//
// Context headers are never authenticated on their own. They inherit the
// trust of the app credentials they travel with.
package headers

import (
	"net/http"
	"strconv"
	"strings"
)

// Canonical header names.
const (
	AppID  = "X-Jarvis-App-Id"
	AppKey = "X-Jarvis-App-Key"

	ContextHouseholdID        = "X-Context-Household-Id"
	ContextNodeID             = "X-Context-Node-Id"
	ContextUserID             = "X-Context-User-Id"
	ContextHouseholdMemberIDs = "X-Context-Household-Member-Ids"
)

// memberIDSeparator delimits the entries of ContextHouseholdMemberIDs.
const memberIDSeparator = ","

// RequestContext carries metadata about the originating end-user request
// across service boundaries. Every field is optional.
type RequestContext struct {
	HouseholdID        string
	NodeID             string
	UserID             *int64
	HouseholdMemberIDs []int64
}

// EncodeContext maps every populated field of rc to its header. Empty fields
// are omitted entirely rather than sent as empty strings.
func EncodeContext(rc RequestContext) http.Header {
	h := http.Header{}
	if rc.HouseholdID != "" {
		h.Set(ContextHouseholdID, rc.HouseholdID)
	}
	if rc.NodeID != "" {
		h.Set(ContextNodeID, rc.NodeID)
	}
	if rc.UserID != nil {
		h.Set(ContextUserID, strconv.FormatInt(*rc.UserID, 10))
	}
	if len(rc.HouseholdMemberIDs) > 0 {
		ids := make([]string, len(rc.HouseholdMemberIDs))
		for i, id := range rc.HouseholdMemberIDs {
			ids[i] = strconv.FormatInt(id, 10)
		}
		h.Set(ContextHouseholdMemberIDs, strings.Join(ids, memberIDSeparator))
	}
	return h
}

// DecodeContext rebuilds a RequestContext from inbound headers. Missing
// headers leave the field empty and unknown headers are ignored. Malformed
// numeric values fail soft: the field is treated as absent instead of the
// request being rejected. Callers that want to report a malformed member
// list can re-check the raw header with ParseMemberIDs.
func DecodeContext(h http.Header) RequestContext {
	rc := RequestContext{
		HouseholdID: h.Get(ContextHouseholdID),
		NodeID:      h.Get(ContextNodeID),
	}
	if raw := h.Get(ContextUserID); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			rc.UserID = &id
		}
	}
	if ids, ok := ParseMemberIDs(h.Get(ContextHouseholdMemberIDs)); ok {
		rc.HouseholdMemberIDs = ids
	}
	return rc
}

// ParseMemberIDs splits a member-id header value and parses each entry as an
// integer. Blank entries are skipped. A non-numeric entry invalidates the
// whole list: ok is false and the parsed ids are discarded.
func ParseMemberIDs(value string) (ids []int64, ok bool) {
	if value == "" {
		return nil, true
	}
	for _, part := range strings.Split(value, memberIDSeparator) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

// AppCredentialHeaders builds the outbound credential pair a service attaches
// when calling another Jarvis service.
func AppCredentialHeaders(appID, appKey string) http.Header {
	h := http.Header{}
	h.Set(AppID, appID)
	h.Set(AppKey, appKey)
	return h
}

// Credentials extracts the inbound credential pair. ok is false when either
// header is missing or empty.
func Credentials(h http.Header) (appID, appKey string, ok bool) {
	appID = h.Get(AppID)
	appKey = h.Get(AppKey)
	return appID, appKey, appID != "" && appKey != ""
}
