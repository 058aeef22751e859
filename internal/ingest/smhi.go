package ingest

// SMHI archive downloads are ';'-separated UTF-8 files that open with a
// station and parameter preamble before the data header.
const (
	SMHIDelimiter = ';'
	SMHIEncoding  = "utf-8"
)

// SMHIHeaderMarkers identify the header line of an SMHI archive file.
var SMHIHeaderMarkers = []string{"Datum", "Från Datum Tid (UTC)", "Från Datum"}

// NewSMHIParser returns a parser for SMHI corrected-archive CSV files.
//
// Expected format:
//
//	Stationsnamn;Stationsnummer;Stationsnät;Mäthöjd (meter över marken)
//	Kalmar Flygplats;66420;SMHIs stationsnät;2.0
//	...
//	Datum;Tid (UTC);Lufttemperatur;Kvalitet;;Tidsutsnitt:
//	2020-01-01;00:00:00;3.1;G;;Kvalitetskontrollerade historiska data
func NewSMHIParser() *TableParser {
	return &TableParser{
		Delimiter:     SMHIDelimiter,
		Encoding:      SMHIEncoding,
		HeaderMarkers: SMHIHeaderMarkers,
	}
}
