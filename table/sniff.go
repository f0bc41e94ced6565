package table

import "strings"

// candidates 按优先级排列；频次一致性相同时取靠前者。
var candidates = []rune{',', '\t', ';', '|', ':'}

// DetectDelimiter 推断分隔符：
//  1. 内容含 ';' 且不含 ',' 时为 ';'
//  2. 否则在前 2KB 内探测每行出现次数一致的候选字符
//  3. 都失败时退回 ','
func DetectDelimiter(content string) rune {
	if strings.ContainsRune(content, ';') && !strings.ContainsRune(content, ',') {
		return ';'
	}
	if d, ok := sniff(sample(content)); ok {
		return d
	}
	return ','
}

// sample 截取前 sniffSample 字节，并丢弃被截断的最后一行。
func sample(content string) string {
	if len(content) <= sniffSample {
		return content
	}
	s := content[:sniffSample]
	if i := strings.LastIndexByte(s, '\n'); i > 0 {
		s = s[:i]
	}
	return s
}

// sniff 统计每个候选字符在各行（引号外）的出现次数，
// 选择出现在最多行中且次数最一致的字符。
func sniff(s string) (rune, bool) {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	var nonEmpty []string
	for _, ln := range lines {
		if strings.TrimSpace(ln) != "" {
			nonEmpty = append(nonEmpty, ln)
		}
	}
	if len(nonEmpty) == 0 {
		return 0, false
	}

	best := rune(0)
	bestScore := 0.0
	for _, c := range candidates {
		counts := make(map[int]int)
		for _, ln := range nonEmpty {
			counts[countOutsideQuotes(ln, c)]++
		}
		// 取出现最多的非零频次（众数）
		modeFreq, modeLines := 0, 0
		for freq, n := range counts {
			if freq == 0 {
				continue
			}
			if n > modeLines || (n == modeLines && freq > modeFreq) {
				modeFreq, modeLines = freq, n
			}
		}
		if modeFreq == 0 {
			continue
		}
		score := float64(modeLines) / float64(len(nonEmpty))
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if best == 0 {
		return 0, false
	}
	return best, true
}

func countOutsideQuotes(line string, c rune) int {
	n := 0
	quoted := false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == c && !quoted:
			n++
		}
	}
	return n
}
