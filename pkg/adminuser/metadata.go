package adminuser

import (
	"reflect"
)

// MetadataPropertyType describes one property of a published record schema.
type MetadataPropertyType struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// MetadataType describes the shape of a record type for external discovery.
type MetadataType struct {
	Name       string                 `json:"name"`
	Properties []MetadataPropertyType `json:"properties"`
}

// Info is the self-describing metadata published for external tooling (e.g.
// an admin UI). It is built once at service construction and immutable
// afterwards.
type Info struct {
	AccessRole              string        `json:"access_role"`
	Enabled                 []string      `json:"enabled"`
	UserAuth                *MetadataType `json:"user_auth"`
	UserAuthDetails         *MetadataType `json:"user_auth_details"`
	AllRoles                []string      `json:"all_roles"`
	AllPermissions          []string      `json:"all_permissions"`
	QueryUserAuthProperties []string      `json:"query_user_auth_properties"`
}

// buildInfo reflects the configured repository's record shapes (custom types
// when the repository supplies them), applies the include-lists, and folds in
// the capability tags and known roles/permissions.
func buildInfo(feature *Feature, repo Repository, caps Capabilities) *Info {
	var userAuth interface{} = &UserAuth{}
	var userAuthDetails interface{} = &UserAuthDetails{}
	if custom, ok := repo.(CustomUserAuthRepository); ok {
		userAuth = custom.CreateUserAuthRecord()
		userAuthDetails = custom.CreateUserAuthDetailsRecord()
	}

	info := &Info{
		AccessRole:              feature.AdminRole,
		Enabled:                 caps.Tags(),
		UserAuth:                toMetadataType(userAuth),
		UserAuthDetails:         toMetadataType(userAuthDetails),
		AllRoles:                feature.AllRoles,
		AllPermissions:          feature.AllPermissions,
		QueryUserAuthProperties: feature.QueryUserAuthProperties,
	}

	info.UserAuth.Properties = filterProperties(info.UserAuth.Properties, feature.IncludeUserAuthProperties)
	info.UserAuthDetails.Properties = filterProperties(info.UserAuthDetails.Properties, feature.IncludeUserAuthDetailsProperties)
	return info
}

// toMetadataType reflects a record value into its published schema. Secrets
// are excluded here as well so an unfiltered schema still never names them
// as exposed values.
func toMetadataType(rec interface{}) *MetadataType {
	t := reflect.Indirect(reflect.ValueOf(rec)).Type()
	meta := &MetadataType{
		Name:       t.Name(),
		Properties: []MetadataPropertyType{},
	}
	walkFields(reflect.ValueOf(rec), func(name string, value reflect.Value) {
		if name == "PasswordHash" || name == "Salt" {
			return
		}
		meta.Properties = append(meta.Properties, MetadataPropertyType{
			Name: name,
			Type: value.Type().String(),
		})
	})
	return meta
}

// filterProperties restricts the schema to the include-list's names in the
// list's order, dropping names that don't exist on the concrete type. A nil
// include-list disables filtering.
func filterProperties(props []MetadataPropertyType, includeProps []string) []MetadataPropertyType {
	if includeProps == nil {
		return props
	}

	byName := make(map[string]MetadataPropertyType, len(props))
	for _, prop := range props {
		byName[prop.Name] = prop
	}

	filtered := []MetadataPropertyType{}
	for _, name := range includeProps {
		if prop, ok := byName[name]; ok {
			filtered = append(filtered, prop)
		}
	}
	return filtered
}
