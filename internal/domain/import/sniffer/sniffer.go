// Package sniffer inspects raw statement bytes before parsing: it detects CSV
// delimiters and header rows, and recognizes the issuing bank from sample text.
package sniffer

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
)

// Common bank statement header keywords
var headerKeywords = []string{
	"data", "data mov", "descrição", "descricao", "histórico", "historico", "lançamento", "lancamento",
	"valor", "débito", "debito", "crédito", "credito", "saldo", "documento",
	"date", "description", "amount", "balance",
}

var (
	ErrEmptyFile      = errors.New("file is empty")
	ErrNoHeadersFound = errors.New("could not detect header row")
)

// DefaultDelimiter is used when no candidate delimiter appears in the header line.
const DefaultDelimiter = ','

// maxScanLines bounds how far into a file the sniffer looks.
const maxScanLines = 20

// FileConfig holds the detected configuration for a CSV file
type FileConfig struct {
	Delimiter  rune     // The field delimiter (';', ',', '\t', '|')
	HeaderLine int      // 0-based index of the first non-empty line
	Headers    []string // Header names split on Delimiter
	// KnownHeaders is true when the header line contains statement keywords
	KnownHeaders bool
}

// DetectConfig analyzes the first non-empty line of a CSV file. That line is
// treated as the header row.
func DetectConfig(data []byte) (*FileConfig, error) {
	data = StripBOM(data)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	lines := readLines(data, maxScanLines)
	for i, line := range lines {
		line = cleanLine(line)
		if line == "" {
			continue
		}

		delimiter, count := detectDelimiter(line)
		if count == 0 {
			delimiter = DefaultDelimiter
		}

		headers := strings.Split(line, string(delimiter))
		for j := range headers {
			headers[j] = strings.Trim(strings.TrimSpace(headers[j]), `"`)
		}

		return &FileConfig{
			Delimiter:    delimiter,
			HeaderLine:   i,
			Headers:      headers,
			KnownHeaders: hasHeaderKeywords(line),
		}, nil
	}

	return nil, ErrNoHeadersFound
}

// DetectDelimiter returns the delimiter of a CSV file, DefaultDelimiter when
// nothing better is found.
func DetectDelimiter(data []byte) rune {
	cfg, err := DetectConfig(data)
	if err != nil {
		return DefaultDelimiter
	}
	return cfg.Delimiter
}

// StripBOM removes a leading UTF-8 byte order mark.
func StripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte("\uFEFF"))
}

// SampleText returns the first maxLines lines of data as one string.
func SampleText(data []byte, maxLines int) string {
	return strings.Join(readLines(StripBOM(data), maxLines), "\n")
}

func readLines(data []byte, limit int) []string {
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) >= limit {
			break
		}
	}
	return lines
}

func hasHeaderKeywords(line string) bool {
	lineLower := strings.ToLower(line)
	for _, kw := range headerKeywords {
		if strings.Contains(lineLower, kw) {
			return true
		}
	}
	return false
}

func cleanLine(line string) string {
	line = strings.TrimRight(line, "\r")
	return strings.TrimSpace(line)
}

func detectDelimiter(line string) (rune, int) {
	delimiters := []rune{';', '\t', ',', '|'}
	bestDelimiter := rune(0)
	bestCount := 0
	for _, d := range delimiters {
		count := strings.Count(line, string(d))
		if count > bestCount {
			bestCount = count
			bestDelimiter = d
		}
	}
	return bestDelimiter, bestCount
}
