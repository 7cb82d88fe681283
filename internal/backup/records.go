package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/failures"
)

const opDecode = "backup.decode"

var (
	errMissingLinks   = errors.New("snapshot has no links field")
	errMalformedLinks = errors.New("snapshot links must be a list of objects")
	errMalformedBody  = errors.New("snapshot must be a JSON object")
)

// RestoreRequest is a decoded snapshot ready for restore. Fields absent from a
// link entry stay nil and receive defaults at insert time.
type RestoreRequest struct {
	Links        []LinkRecord
	CustomerInfo *CustomerRecord
}

// LinkRecord is one snapshot link. Ids are never carried over.
type LinkRecord struct {
	URL       *string
	Platform  *string
	AddedBy   *string
	DateAdded *string
	Rating    *int
	Liked     *bool
	Disliked  *bool
	Memo      *string
}

// CustomerRecord is the snapshot's customer profile.
type CustomerRecord struct {
	CustomerName *string
	MoveInDate   *string
}

// DecodeRestoreRequest parses a JSON snapshot body.
func DecodeRestoreRequest(raw []byte) (RestoreRequest, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var document map[string]any
	if err := decoder.Decode(&document); err != nil {
		return RestoreRequest{}, failures.Validation(opDecode, "malformed_body", fmt.Errorf("%w: %v", errMalformedBody, err))
	}
	return ParseRestoreRequest(document)
}

// ParseRestoreRequest converts a generic snapshot document, as produced by a JSON
// or YAML decoder, into a RestoreRequest. Snapshots written by older tools store
// booleans as 0/1 and are accepted.
func ParseRestoreRequest(document map[string]any) (RestoreRequest, error) {
	if document == nil {
		return RestoreRequest{}, failures.Validation(opDecode, "missing_links", errMissingLinks)
	}
	rawLinks, ok := document["links"]
	if !ok || rawLinks == nil {
		return RestoreRequest{}, failures.Validation(opDecode, "missing_links", errMissingLinks)
	}
	entries, ok := rawLinks.([]any)
	if !ok {
		return RestoreRequest{}, failures.Validation(opDecode, "malformed_links", errMalformedLinks)
	}

	request := RestoreRequest{Links: make([]LinkRecord, 0, len(entries))}
	for index, entry := range entries {
		fields, ok := asObject(entry)
		if !ok {
			return RestoreRequest{}, failures.Validation(opDecode, "malformed_links",
				fmt.Errorf("%w: entry %d", errMalformedLinks, index))
		}
		record, err := parseLinkRecord(fields)
		if err != nil {
			return RestoreRequest{}, failures.Validation(opDecode, "malformed_link",
				fmt.Errorf("entry %d: %w", index, err))
		}
		request.Links = append(request.Links, record)
	}

	if fields, ok := asObject(document["customer_info"]); ok {
		request.CustomerInfo = &CustomerRecord{
			CustomerName: textField(fields, "customer_name"),
			MoveInDate:   textField(fields, "move_in_date"),
		}
	}
	return request, nil
}

func parseLinkRecord(fields map[string]any) (LinkRecord, error) {
	record := LinkRecord{
		URL:       textField(fields, "url"),
		Platform:  textField(fields, "platform"),
		AddedBy:   textField(fields, "added_by"),
		DateAdded: textField(fields, "date_added"),
		Memo:      textField(fields, "memo"),
	}
	rating, err := intField(fields, "rating")
	if err != nil {
		return LinkRecord{}, err
	}
	record.Rating = rating
	if record.Liked, err = boolField(fields, "liked"); err != nil {
		return LinkRecord{}, err
	}
	if record.Disliked, err = boolField(fields, "disliked"); err != nil {
		return LinkRecord{}, err
	}
	return record, nil
}

func asObject(value any) (map[string]any, bool) {
	fields, ok := value.(map[string]any)
	return fields, ok
}

func textField(fields map[string]any, key string) *string {
	value, ok := fields[key]
	if !ok || value == nil {
		return nil
	}
	var text string
	switch typed := value.(type) {
	case string:
		text = typed
	default:
		text = fmt.Sprint(typed)
	}
	return &text
}

func intField(fields map[string]any, key string) (*int, error) {
	value, ok := fields[key]
	if !ok || value == nil {
		return nil, nil
	}
	var parsed int
	switch typed := value.(type) {
	case json.Number:
		number, err := typed.Float64()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		if parsed, err = truncateToInt(key, number); err != nil {
			return nil, err
		}
	case int:
		parsed = typed
	case int64:
		parsed = int(typed)
	case float64:
		truncated, err := truncateToInt(key, typed)
		if err != nil {
			return nil, err
		}
		parsed = truncated
	case bool:
		if typed {
			parsed = 1
		}
	case string:
		number, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number", key, typed)
		}
		parsed = number
	default:
		return nil, fmt.Errorf("%s: unsupported value %v", key, typed)
	}
	return &parsed, nil
}

// truncateToInt drops the fraction, rejecting values no int can hold.
func truncateToInt(key string, value float64) (int, error) {
	truncated := math.Trunc(value)
	if math.IsNaN(truncated) || truncated < math.MinInt || truncated >= math.MaxInt {
		return 0, fmt.Errorf("%s: %v is out of range", key, value)
	}
	return int(truncated), nil
}

func boolField(fields map[string]any, key string) (*bool, error) {
	value, ok := fields[key]
	if !ok || value == nil {
		return nil, nil
	}
	var parsed bool
	switch typed := value.(type) {
	case bool:
		parsed = typed
	case json.Number:
		number, err := typed.Float64()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		parsed = number != 0
	case int:
		parsed = typed != 0
	case int64:
		parsed = typed != 0
	case float64:
		parsed = typed != 0
	case string:
		flag, err := strconv.ParseBool(strings.TrimSpace(typed))
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a boolean", key, typed)
		}
		parsed = flag
	default:
		return nil, fmt.Errorf("%s: unsupported value %v", key, typed)
	}
	return &parsed, nil
}
