package adminuser

import (
	"reflect"

	"github.com/iancoleman/orderedmap"
)

// ToUserProps projects a record into an ordered field-name-to-value map,
// removing the password hash and salt fields. A profile URL stored in the
// record's metadata map is promoted to a top-level field for display
// convenience. The same projection serves default and custom record types.
func ToUserProps(rec Record) *orderedmap.OrderedMap {
	props := orderedmap.New()
	walkFields(reflect.ValueOf(rec), func(name string, v reflect.Value) {
		if name == "PasswordHash" || name == "Salt" {
			return
		}
		props.Set(name, v.Interface())
	})

	if _, ok := props.Get(ProfileUrlKey); !ok {
		if meta := rec.UserAuth().Meta; meta != nil {
			if profileUrl, ok := meta[ProfileUrlKey]; ok {
				props.Set(ProfileUrlKey, profileUrl)
			}
		}
	}

	return props
}

// FilterResults restricts each row to exactly the named properties, in list
// order, substituting nil for requested names missing on the row. A nil
// include-list leaves rows unfiltered.
func FilterResults(rows []*orderedmap.OrderedMap, includeProps []string) []*orderedmap.OrderedMap {
	if includeProps == nil {
		return rows
	}

	to := make([]*orderedmap.OrderedMap, 0, len(rows))
	for _, row := range rows {
		filtered := orderedmap.New()
		for _, name := range includeProps {
			if value, ok := row.Get(name); ok {
				filtered.Set(name, value)
			} else {
				filtered.Set(name, nil)
			}
		}
		to = append(to, filtered)
	}
	return to
}

// walkFields visits the exported fields of a struct in declaration order,
// flattening anonymous embedded structs so custom record types that embed
// UserAuth project their base and extension fields side by side.
func walkFields(v reflect.Value, fn func(name string, value reflect.Value)) {
	v = reflect.Indirect(v)
	if v.Kind() != reflect.Struct {
		return
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.PkgPath != "" {
			continue
		}
		value := v.Field(i)
		if field.Anonymous {
			if value.Kind() == reflect.Ptr && value.IsNil() {
				continue
			}
			walkFields(value, fn)
			continue
		}
		fn(field.Name, value)
	}
}
