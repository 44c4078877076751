package model

import (
	"fmt"
	"strings"
)

const defaultStringLength = 255

// CanonicalType is the SQL Server type a property maps to when it carries no
// physical type override.
func (p *Property) CanonicalType() string {
	switch p.Type {
	case TypeText:
		return "TEXT"
	case TypeNumber:
		return "INT"
	case TypeDate:
		return "DATETIME"
	case TypeBoolean:
		return "BIT"
	case TypeGeoPoint:
		return "FLOAT"
	case TypeDecimal:
		return "DECIMAL"
	case TypeBuffer:
		return "VARBINARY(MAX)"
	default:
		length := p.Length
		if length <= 0 {
			length = defaultStringLength
		}
		return fmt.Sprintf("NVARCHAR(%d)", length)
	}
}

// DataType renders the column type, honouring the physical overrides.
func (p *Property) DataType() string {
	colType := p.TypeOverride()
	if colType == "" {
		return p.CanonicalType()
	}
	if s := p.Mssql; s.DataPrecision > 0 && s.DataScale > 0 {
		return fmt.Sprintf("%s(%d, %d)", colType, s.DataPrecision, s.DataScale)
	}
	if length, ok := p.DeclaredLength(); ok {
		return fmt.Sprintf("%s(%s)", colType, strings.ToUpper(length))
	}
	return colType
}

// ColumnDefinition renders "<type> NULL" or "<type> NOT NULL".
func (p *Property) ColumnDefinition() string {
	if p.NotNull() {
		return p.DataType() + " NOT NULL"
	}
	return p.DataType() + " NULL"
}
