package excel

// Data is a header row plus raw string records, as read from a file
type Data struct {
	Headers []string   // Column headers
	Rows    [][]string // Data rows, possibly shorter than Headers
}
