package tdtypes

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnMetaValidate(t *testing.T) {
	tests := []struct {
		name    string
		col     ColumnMeta
		wantErr error
	}{
		{"fixed type", Column("celsius", TypeFloat, 0), nil},
		{"sized type", Column("site", TypeNChar, 64), nil},
		{"empty name", Column("", TypeInt, 0), ErrEmptyColumnName},
		{"quoted name", Column("a`b", TypeInt, 0), ErrInvalidColumnName},
		{"unknown type", Column("x", DataType(42), 0), ErrUnknownType},
		{"binary without length", Column("x", TypeBinary, 0), ErrMissingLength},
		{"too long", Column(string(make([]byte, 65)), TypeInt, 0), ErrColumnNameTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.col.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestColumnSQL(t *testing.T) {
	assert.Equal(t, "`celsius` FLOAT", Column("celsius", TypeFloat, 4).SQL())
	assert.Equal(t, "`site` NCHAR(64)", Column("site", TypeNChar, 64).SQL())
	assert.Equal(t, "`a` INT, `b` BINARY(8)",
		ColumnsSQL([]ColumnMeta{Column("a", TypeInt, 0), Column("b", TypeBinary, 8)}))
}

func TestValidateColumnsRejectsDuplicates(t *testing.T) {
	err := ValidateColumns([]ColumnMeta{Column("a", TypeInt, 0), Column("A", TypeBigInt, 0)})
	assert.Error(t, err)
}

func TestParseEnums(t *testing.T) {
	dt, err := ParseDataType("nchar")
	require.NoError(t, err)
	assert.Equal(t, TypeNChar, dt)
	_, err = ParseDataType("varchar2")
	assert.Error(t, err)

	mode, err := ParseUpdateMode("")
	require.NoError(t, err)
	assert.Equal(t, UpdatePart, mode)
	mode, err = ParseUpdateMode("disable")
	require.NoError(t, err)
	assert.Equal(t, UpdateDisable, mode)
	_, err = ParseUpdateMode("sometimes")
	assert.Error(t, err)

	tf, err := ParseTimeFormat("")
	require.NoError(t, err)
	assert.Equal(t, TimeEpoch, tf)
	tf, err = ParseTimeFormat("UTC")
	require.NoError(t, err)
	assert.Equal(t, TimeUTC, tf)
	_, err = ParseTimeFormat("iso")
	assert.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	want := time.UnixMilli(1538548685000)

	got, err := ParseTimestamp(json.Number("1538548685000"))
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = ParseTimestamp("2018-10-03T14:38:05.000+0800")
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	got, err = ParseTimestamp(nil)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestCellConversions(t *testing.T) {
	n, err := AsInt64(json.Number("42"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	n, err = AsInt64(nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = AsInt64([]int{1})
	assert.Error(t, err)

	assert.Equal(t, "", AsString(nil))
	assert.Equal(t, "3.5", AsString(json.Number("3.5")))
	assert.Equal(t, "true", AsString(true))
}
