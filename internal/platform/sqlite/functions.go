package sqlite

import (
	"database/sql/driver"
	"fmt"
	"strings"

	moderncsqlite "modernc.org/sqlite"
)

// CaseFoldFunc is the SQL name of the Unicode-aware lower-casing function
// installed on every connection. SQLite's own lower() and LIKE fold ASCII only.
const CaseFoldFunc = "casefold"

func init() {
	moderncsqlite.MustRegisterDeterministicScalarFunction(CaseFoldFunc, 1, caseFold)
}

// caseFold lower-cases text the same way domain.TaskFilter.Matches does.
func caseFold(_ *moderncsqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return nil, fmt.Errorf("%s: unsupported argument type %T", CaseFoldFunc, v)
	}
}
