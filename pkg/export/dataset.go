package export

// Column describes one exported field. Key indexes the row map, Title is printed in the header and Width is a
// relative weight used by the PDF layout (0 means 1).
type Column struct {
	Key   string
	Title string
	Width float64
}

// Dataset is the renderer-neutral content of a report.
type Dataset struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}

func (d Dataset) titles() []string {
	out := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		out[i] = col.Title
		if out[i] == "" {
			out[i] = col.Key
		}
	}
	return out
}

func (d Dataset) record(row map[string]string) []string {
	out := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		out[i] = row[col.Key]
	}
	return out
}
