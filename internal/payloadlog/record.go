package payloadlog

import "time"

const (
	// Header is the first line of every payload log file.
	Header = "Payload,Date,time\n"

	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Record is one line of a payload log.
type Record struct {
	Payload []byte
	Date    string
	Time    string
}

// NewRecord stamps payload with t in the host's local timezone,
// truncated to whole seconds.
func NewRecord(payload []byte, t time.Time) Record {
	t = t.Local().Truncate(time.Second)
	return Record{
		Payload: payload,
		Date:    t.Format(dateLayout),
		Time:    t.Format(timeLayout),
	}
}

// Bytes renders the record as "payload,date,time\n". The payload is
// written verbatim: embedded commas or newlines are not escaped.
func (r Record) Bytes() []byte {
	line := make([]byte, 0, len(r.Payload)+len(r.Date)+len(r.Time)+3)
	line = append(line, r.Payload...)
	line = append(line, ',')
	line = append(line, r.Date...)
	line = append(line, ',')
	line = append(line, r.Time...)
	return append(line, '\n')
}
