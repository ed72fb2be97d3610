package adminuser

import (
	"reflect"
	"strconv"
	"time"

	"github.com/jinzhu/copier"

	"github.com/tendant/simple-admin/pkg/errors"
)

// populateUserAuth overlays the request onto the target record. Only fields
// holding a non-default value overwrite the target; unset request fields
// leave existing values untouched. The string property bag is applied as a
// second overlay pass so extension fields on custom record types can be set
// without first-class request fields.
func populateUserAuth(to Record, req AdminUserBase) error {
	base := to.UserAuth()

	if err := copier.CopyWithOption(base, &req, copier.Option{IgnoreEmpty: true}); err != nil {
		return errors.InternalWrap(err, "failed to populate user fields")
	}

	if base.DisplayName == "" && base.FirstName != "" {
		base.DisplayName = base.FirstName
		if base.LastName != "" {
			base.DisplayName += " " + base.LastName
		}
	}

	for name, value := range req.UserAuthProperties {
		if err := setFieldFromString(to, name, value); err != nil {
			return err
		}
	}

	if req.ProfileUrl != "" {
		// Stash the profile URL in the metadata map when the concrete
		// record type has no first-class field for it.
		if !setStringField(to, ProfileUrlKey, req.ProfileUrl) {
			if base.Meta == nil {
				base.Meta = make(map[string]string)
			}
			base.Meta[ProfileUrlKey] = req.ProfileUrl
		}
	}

	return nil
}

// setStringField sets a string field by name on the concrete record type,
// reporting whether such a field exists.
func setStringField(rec Record, name, value string) bool {
	v := reflect.Indirect(reflect.ValueOf(rec))
	f := v.FieldByName(name)
	if !f.IsValid() || !f.CanSet() || f.Kind() != reflect.String {
		return false
	}
	f.SetString(value)
	return true
}

// setFieldFromString converts a string bag value onto a typed record field.
// Unknown field names are ignored; unconvertible values fail the request.
func setFieldFromString(rec Record, name, value string) error {
	v := reflect.Indirect(reflect.ValueOf(rec))
	f := v.FieldByName(name)
	if !f.IsValid() || !f.CanSet() {
		return nil
	}

	switch f.Interface().(type) {
	case string:
		f.SetString(value)
	case int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Newf(errors.ErrCodeInvalidInput, "invalid integer for %s: %s", name, value)
		}
		f.SetInt(int64(n))
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Newf(errors.ErrCodeInvalidInput, "invalid boolean for %s: %s", name, value)
		}
		f.SetBool(b)
	case time.Time:
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return errors.Newf(errors.ErrCodeInvalidInput, "invalid timestamp for %s: %s", name, value)
		}
		f.Set(reflect.ValueOf(t))
	case *time.Time:
		t, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return errors.Newf(errors.ErrCodeInvalidInput, "invalid timestamp for %s: %s", name, value)
		}
		f.Set(reflect.ValueOf(&t))
	}
	return nil
}
