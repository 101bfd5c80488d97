// Package parser reads transcript files and yields resolved messages.
package parser

// Stats counts what a source has read so far.
type Stats struct {
	// Files is the number of transcripts opened.
	Files int

	// Lines is the number of physical lines read.
	Lines int

	// Entries is the number of entry-start lines seen.
	Entries int

	// Records is the number of records reconstructed.
	Records int

	// Dropped is the number of records whose timestamp could not be resolved.
	Dropped int
}

// Add returns the sum of two Stats.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Files:   s.Files + o.Files,
		Lines:   s.Lines + o.Lines,
		Entries: s.Entries + o.Entries,
		Records: s.Records + o.Records,
		Dropped: s.Dropped + o.Dropped,
	}
}
