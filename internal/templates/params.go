package templates

import (
	"strconv"

	"github.com/dmitrijs2005/dbkeeper/internal/models"
)

// ParamsFromRecord rebuilds provisioning parameters from a stored record.
func ParamsFromRecord(r models.DatabaseRecord) models.Params {
	return models.Params{
		Name:         r.Name,
		Username:     r.Username,
		Password:     r.Password,
		DatabaseName: r.DatabaseName,
		RootPassword: r.RootPassword,
		Port:         r.Port,
	}
}

// FieldValue returns the string form of f in p.
func FieldValue(p models.Params, f Field) string {
	switch f {
	case FieldName:
		return p.Name
	case FieldUsername:
		return p.Username
	case FieldPassword:
		return p.Password
	case FieldDatabaseName:
		return p.DatabaseName
	case FieldRootPassword:
		return p.RootPassword
	case FieldPort:
		if p.Port == 0 {
			return ""
		}
		return strconv.Itoa(p.Port)
	}
	return ""
}

// Secret reports whether values of f must not be echoed or logged.
func (f Field) Secret() bool {
	return f == FieldPassword || f == FieldRootPassword
}
