package postgres

import "fmt"

// pgTypeNameFromOID maps the common pg type OIDs to their names.
func pgTypeNameFromOID(oid uint32) string {
	switch oid {
	case 16:
		return "BOOL"
	case 20:
		return "INT8"
	case 21:
		return "INT2"
	case 23:
		return "INT4"
	case 25:
		return "TEXT"
	case 114:
		return "JSON"
	case 700:
		return "FLOAT4"
	case 701:
		return "FLOAT8"
	case 1042:
		return "BPCHAR"
	case 1043:
		return "VARCHAR"
	case 1082:
		return "DATE"
	case 1083:
		return "TIME"
	case 1114:
		return "TIMESTAMP"
	case 1184:
		return "TIMESTAMPTZ"
	case 1700:
		return "NUMERIC"
	case 2950:
		return "UUID"
	case 3802:
		return "JSONB"
	default:
		return fmt.Sprintf("OID_%d", oid)
	}
}
