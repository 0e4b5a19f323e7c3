package feed

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Phase identifies which recall stream a feed cursor points into. The feed
// only ever moves forward: profile first, fallback after, never back.
type Phase string

const (
	// PhaseProfile is the interest-ranked recall stream.
	PhaseProfile Phase = "profile"
	// PhaseFallback is the global chronological stream.
	PhaseFallback Phase = "fallback"
)

// ErrCursorDecode reports a token that could not be decoded: bad base64,
// bad JSON, missing fields or an unparseable timestamp. Callers treat it as
// "unknown position" and restart the fallback stream rather than failing
// the request.
var ErrCursorDecode = errors.New("malformed cursor")

// Position is a keyset pagination marker: the sort key of the last item
// already returned. Time is created_at for feed queries and updated_at for
// the own-posts listing; ID breaks timestamp ties.
type Position struct {
	Time time.Time
	ID   int64
}

// FeedCursor is the client-held state of one paging session. Exactly one of
// the phase-specific fields is meaningful: Position while in the profile
// phase (nil means first page), Inner while in the fallback phase (empty
// means start of fallback).
type FeedCursor struct {
	Phase    Phase
	Position *Position
	Inner    string
}

// Wire forms. The token is base64 of these JSON objects; clients treat it
// as fully opaque.
type positionPayload struct {
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
	ID        string `json:"_id"`
}

type feedCursorPayload struct {
	Phase       string `json:"phase,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	ID          string `json:"_id,omitempty"`
	InnerCursor string `json:"innerCursor,omitempty"`
}

func encodeToken(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Payload structs are closed records of strings; this cannot happen.
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

func decodeToken(token string, v interface{}) error {
	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		// Tolerate standard-alphabet tokens from older clients.
		data, err = base64.StdEncoding.DecodeString(token)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrCursorDecode, err)
		}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrCursorDecode, err)
	}
	return nil
}

func parsePosition(timeStr, idStr string) (Position, error) {
	ts, err := time.Parse(time.RFC3339Nano, timeStr)
	if err != nil {
		return Position{}, fmt.Errorf("%w: bad timestamp %q", ErrCursorDecode, timeStr)
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return Position{}, fmt.Errorf("%w: bad id %q", ErrCursorDecode, idStr)
	}
	return Position{Time: ts, ID: id}, nil
}

// EncodeCreatedPosition encodes a created_at keyset position
func EncodeCreatedPosition(p Position) string {
	return encodeToken(positionPayload{
		CreatedAt: p.Time.UTC().Format(time.RFC3339Nano),
		ID:        strconv.FormatInt(p.ID, 10),
	})
}

// DecodeCreatedPosition decodes a created_at keyset position
func DecodeCreatedPosition(token string) (Position, error) {
	var payload positionPayload
	if err := decodeToken(token, &payload); err != nil {
		return Position{}, err
	}
	if payload.CreatedAt == "" {
		return Position{}, fmt.Errorf("%w: missing createdAt", ErrCursorDecode)
	}
	return parsePosition(payload.CreatedAt, payload.ID)
}

// EncodeUpdatedPosition encodes an updated_at keyset position
func EncodeUpdatedPosition(p Position) string {
	return encodeToken(positionPayload{
		UpdatedAt: p.Time.UTC().Format(time.RFC3339Nano),
		ID:        strconv.FormatInt(p.ID, 10),
	})
}

// DecodeUpdatedPosition decodes an updated_at keyset position
func DecodeUpdatedPosition(token string) (Position, error) {
	var payload positionPayload
	if err := decodeToken(token, &payload); err != nil {
		return Position{}, err
	}
	if payload.UpdatedAt == "" {
		return Position{}, fmt.Errorf("%w: missing updatedAt", ErrCursorDecode)
	}
	return parsePosition(payload.UpdatedAt, payload.ID)
}

// EncodeFeedCursor encodes a feed cursor into an opaque token
func EncodeFeedCursor(c FeedCursor) string {
	payload := feedCursorPayload{Phase: string(c.Phase)}
	switch c.Phase {
	case PhaseProfile:
		if c.Position != nil {
			payload.CreatedAt = c.Position.Time.UTC().Format(time.RFC3339Nano)
			payload.ID = strconv.FormatInt(c.Position.ID, 10)
		}
	case PhaseFallback:
		payload.InnerCursor = c.Inner
	}
	return encodeToken(payload)
}

// DecodeFeedCursor decodes an opaque feed token. An omitted phase means
// profile-first-page; a profile phase must carry a full position. Anything
// else is ErrCursorDecode.
func DecodeFeedCursor(token string) (FeedCursor, error) {
	var payload feedCursorPayload
	if err := decodeToken(token, &payload); err != nil {
		return FeedCursor{}, err
	}

	switch Phase(payload.Phase) {
	case PhaseProfile:
		if payload.CreatedAt == "" || payload.ID == "" {
			return FeedCursor{}, fmt.Errorf("%w: profile cursor missing position", ErrCursorDecode)
		}
		pos, err := parsePosition(payload.CreatedAt, payload.ID)
		if err != nil {
			return FeedCursor{}, err
		}
		return FeedCursor{Phase: PhaseProfile, Position: &pos}, nil
	case PhaseFallback:
		return FeedCursor{Phase: PhaseFallback, Inner: payload.InnerCursor}, nil
	case "":
		return FeedCursor{Phase: PhaseProfile}, nil
	default:
		return FeedCursor{}, fmt.Errorf("%w: unknown phase %q", ErrCursorDecode, payload.Phase)
	}
}
