package mws

import (
	"fmt"
	"net/url"
	"strconv"
)

// Field describes how one request parameter is put on the wire. A field
// with an empty Member is a scalar; otherwise it is a list flattened as
// Name.Member.1, Name.Member.2, ...
type Field struct {
	Member string
}

// Scalar is a single-valued field.
var Scalar = Field{}

// ListOf returns a list field with the given member name.
func ListOf(member string) Field {
	return Field{Member: member}
}

// Action lists the fields an API action accepts.
type Action map[string]Field

// Schema maps action names to their accepted fields.
type Schema map[string]Action

// Encode flattens params into wire form for action. Scalars given for list
// fields become one-element lists, empty lists are omitted, and fields the
// action does not accept are returned in dropped.
func (s Schema) Encode(action string, params *Params) (url.Values, []string, error) {
	fields, ok := s[action]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}

	values := url.Values{}
	var dropped []string
	for _, key := range params.Keys() {
		v, _ := params.Get(key)
		field, ok := fields[key]
		if !ok {
			dropped = append(dropped, key)
			continue
		}

		if field.Member == "" {
			if v.IsList() {
				return nil, nil, fmt.Errorf("%w: %s takes a single value", ErrInvalidParam, key)
			}
			values.Set(key, v.String())
			continue
		}

		for i, item := range v.List() {
			values.Set(key+"."+field.Member+"."+strconv.Itoa(i+1), item)
		}
	}

	return values, dropped, nil
}
