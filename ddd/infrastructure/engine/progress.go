package engine

import (
	"regexp"
	"strconv"
	"strings"
)

const stderrTailLines = 50

var (
	reDuration = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+(?:\.\d+)?)`)
	reTime     = regexp.MustCompile(`time=(\d+):(\d+):(\d+(?:\.\d+)?)`)
)

// progressParser 解析 ffmpeg stderr（含 -progress pipe:2 的 key=value 行）
type progressParser struct {
	durationSec float64
	tail        []string
}

// parseLine returns a completion ratio when the line carries one. Lines that are not
// progress records are kept in the stderr tail and reported via isLog.
func (p *progressParser) parseLine(line string) (ratio float64, ok bool, isLog bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, false, false
	}

	switch {
	case line == "progress=end":
		return 1, true, false
	case strings.HasPrefix(line, "progress="):
		return 0, false, false
	case strings.HasPrefix(line, "out_time_us="):
		return p.ratioFromMicros(strings.TrimPrefix(line, "out_time_us="))
	case strings.HasPrefix(line, "out_time_ms="):
		// ffmpeg 的 out_time_ms 实际单位也是微秒
		return p.ratioFromMicros(strings.TrimPrefix(line, "out_time_ms="))
	case isProgressKey(line):
		return 0, false, false
	}

	if p.durationSec <= 0 {
		if m := reDuration.FindStringSubmatch(line); len(m) == 4 {
			p.durationSec = clockSeconds(m[1], m[2], m[3])
		}
	}
	p.remember(line)

	if m := reTime.FindStringSubmatch(line); len(m) == 4 && p.durationSec > 0 {
		return clampRatio(clockSeconds(m[1], m[2], m[3]) / p.durationSec), true, true
	}
	return 0, false, true
}

func (p *progressParser) ratioFromMicros(raw string) (float64, bool, bool) {
	us, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || p.durationSec <= 0 {
		return 0, false, false
	}
	return clampRatio(us / 1e6 / p.durationSec), true, false
}

func (p *progressParser) remember(line string) {
	if len(p.tail) >= stderrTailLines {
		p.tail = p.tail[1:]
	}
	p.tail = append(p.tail, line)
}

// Tail returns the last stderr lines that were not progress records.
func (p *progressParser) Tail() string {
	return strings.Join(p.tail, "\n")
}

// -progress 输出的其余字段：frame=, fps=, bitrate=, speed= ...
func isProgressKey(line string) bool {
	i := strings.IndexByte(line, '=')
	if i <= 0 || strings.ContainsAny(line[:i], " \t:") {
		return false
	}
	// 值可能带前导空格，例如 "bitrate= 285.0kbits/s"
	return !strings.ContainsAny(strings.TrimSpace(line[i+1:]), " \t")
}

func clockSeconds(hh, mm, ss string) float64 {
	h, _ := strconv.ParseFloat(hh, 64)
	m, _ := strconv.ParseFloat(mm, 64)
	s, _ := strconv.ParseFloat(ss, 64)
	return h*3600 + m*60 + s
}

func clampRatio(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
