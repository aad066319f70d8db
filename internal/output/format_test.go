package output_test

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keysmith/keysmith/internal/output"
)

func TestFormatter_JSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatJSON, &buf)

	data := map[string]string{"wallet_id": "abc123"}
	err := f.Print(data)
	require.NoError(t, err)

	var result map[string]string
	err = json.Unmarshal(buf.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "abc123", result["wallet_id"])
}

func TestFormatter_Table(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatTable, &buf)

	err := f.Print("hello world")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", buf.String())
}

func TestFormatter_Printf(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatTable, &buf)

	err := f.Printf("hello %s\n", "world")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", buf.String())
}

func TestFormatter_Println(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatTable, &buf)

	err := f.Println("hello", "world")
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", buf.String())
}

func TestFormatter_IsJSON(t *testing.T) {
	t.Parallel()
	jsonFmt := output.NewFormatter(output.FormatJSON, nil)
	tableFmt := output.NewFormatter(output.FormatTable, nil)

	assert.True(t, jsonFmt.IsJSON())
	assert.False(t, tableFmt.IsJSON())
}

func TestFormatter_Format(t *testing.T) {
	t.Parallel()
	f := output.NewFormatter(output.FormatJSON, nil)
	assert.Equal(t, output.FormatJSON, f.Format())

	f2 := output.NewFormatter(output.FormatTable, nil)
	assert.Equal(t, output.FormatTable, f2.Format())
}

func TestFormatter_Writer(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	f := output.NewFormatter(output.FormatJSON, &buf)
	assert.Equal(t, &buf, f.Writer())
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		input    string
		expected output.Format
	}{
		{"json", output.FormatJSON},
		{"JSON", output.FormatJSON},
		{"table", output.FormatTable},
		{"TABLE", output.FormatTable},
		{"text", output.FormatTable},
		{"auto", output.FormatAuto},
		{"", output.FormatAuto},
		{"invalid", output.FormatAuto},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			result := output.ParseFormat(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDetectFormat_Explicit(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	assert.Equal(t, output.FormatJSON, output.DetectFormat(&buf, output.FormatJSON))
	assert.Equal(t, output.FormatTable, output.DetectFormat(&buf, output.FormatTable))
}

func TestDetectFormat_NonTTY(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	// Non-TTY should default to JSON
	result := output.DetectFormat(&buf, output.FormatAuto)
	assert.Equal(t, output.FormatJSON, result)
}

func TestDetectFormat_TTY(t *testing.T) {
	// Skip if not running in a terminal
	if os.Getenv("TEST_TTY") == "" {
		t.Skip("Skipping TTY test - set TEST_TTY=1 to run")
	}

	result := output.DetectFormat(os.Stdout, output.FormatAuto)
	assert.Equal(t, output.FormatTable, result)
}

func TestTable_Basic(t *testing.T) {
	t.Parallel()
	table := output.NewTable("Name", "Chain", "Address")
	table.AddRow("savings", "bitcoin", "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu")
	table.AddRow("trading", "ethereum", "0x9858EfFD232B4033E47d90003D41EC34EcaEda94")

	var buf bytes.Buffer
	err := table.Render(&buf)
	require.NoError(t, err)

	result := buf.String()
	assert.Contains(t, result, "Name")
	assert.Contains(t, result, "Chain")
	assert.Contains(t, result, "savings")
	assert.Contains(t, result, "bitcoin")
	assert.Contains(t, result, "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu")
	assert.Contains(t, result, "0x9858EfFD232B4033E47d90003D41EC34EcaEda94")
}

func TestTable_NoHeader(t *testing.T) {
	t.Parallel()
	table := output.NewTable("Name", "Value")
	table.SetNoHeader(true)
	table.AddRow("foo", "bar")

	var buf bytes.Buffer
	err := table.Render(&buf)
	require.NoError(t, err)

	result := buf.String()
	assert.NotContains(t, result, "Name")
	assert.NotContains(t, result, "---")
	assert.Contains(t, result, "foo")
}

func TestTable_ColumnAlignment(t *testing.T) {
	t.Parallel()
	table := output.NewTable("Short", "LongerHeader")
	table.AddRow("a", "b")
	table.AddRow("longer", "x")

	result := table.String()
	// Columns should be aligned
	assert.Contains(t, result, "Short ")
	assert.Contains(t, result, "LongerHeader")
}

func TestTable_Empty(t *testing.T) {
	t.Parallel()
	table := output.NewTable()

	var buf bytes.Buffer
	err := table.Render(&buf)
	require.NoError(t, err)
	assert.Empty(t, buf.String())
}

func TestTable_HeadersOnly(t *testing.T) {
	t.Parallel()
	table := output.NewTable("Name", "Value", "Status")

	var buf bytes.Buffer
	err := table.Render(&buf)
	require.NoError(t, err)

	result := buf.String()
	assert.Contains(t, result, "Name")
	assert.Contains(t, result, "Value")
	assert.Contains(t, result, "Status")
	assert.Contains(t, result, "---") // Separator line
}

func TestTable_RaggedRows(t *testing.T) {
	t.Parallel()
	table := output.NewTable("A", "B", "C")
	table.AddRow("1", "2")      // Missing column
	table.AddRow("3", "4", "5") // Complete
	table.AddRow("6")           // Only one column

	var buf bytes.Buffer
	err := table.Render(&buf)
	require.NoError(t, err)

	result := buf.String()
	assert.Contains(t, result, "1")
	assert.Contains(t, result, "3")
	assert.Contains(t, result, "6")
}

func TestTable_EmptyCells(t *testing.T) {
	t.Parallel()
	table := output.NewTable("Name", "Label")
	table.AddRow("", "cold storage")
	table.AddRow("savings", "")
	table.AddRow("", "")

	var buf bytes.Buffer
	err := table.Render(&buf)
	require.NoError(t, err)

	result := buf.String()
	assert.Contains(t, result, "Name")
	assert.Contains(t, result, "cold storage")
}

func TestTable_SetSeparator(t *testing.T) {
	t.Parallel()
	table := output.NewTable("A", "B")
	table.AddRow("1", "2")
	table.SetSeparator(" | ")

	var buf bytes.Buffer
	err := table.Render(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), " | ")
}

func TestTable_LongContent(t *testing.T) {
	t.Parallel()
	longValue := strings.Repeat("a", 1000)
	table := output.NewTable("Name", "Value")
	table.AddRow("test", longValue)

	var buf bytes.Buffer
	err := table.Render(&buf)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), longValue)
}

func TestTable_String(t *testing.T) {
	t.Parallel()
	table := output.NewTable("Header")
	table.AddRow("Value")

	result := table.String()
	assert.Contains(t, result, "Header")
	assert.Contains(t, result, "Value")
}

func TestFormatSuccess(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	err := output.FormatSuccess(&buf, "Wallet created", output.FormatJSON)
	require.NoError(t, err)

	var result map[string]string
	jsonErr := json.Unmarshal(buf.Bytes(), &result)
	require.NoError(t, jsonErr)
	assert.Equal(t, "success", result["status"])
	assert.Equal(t, "Wallet created", result["message"])
}

func TestFormatSuccess_Text(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := output.FormatSuccess(&buf, "Wallet created", output.FormatTable)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Wallet created")
}
