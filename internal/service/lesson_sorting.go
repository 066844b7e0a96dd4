package service

import (
	"math"
	"regexp"
	"sort"
	"strconv"

	"artiefy_backend/internal/model"
)

// NoOrdinal 标题中解析不出序号时的哨兵值，排在最后
const NoOrdinal = math.MaxInt32

var (
	sessionClassRe = regexp.MustCompile(`(?i)sesi[oó]n\s*(\d+)\D*?clase\s*(\d+)`)
	sessionRe      = regexp.MustCompile(`(?i)sesi[oó]n\s*(\d+)`)
	leadingRe      = regexp.MustCompile(`(?i)^\s*(?:(?:clase|lecci[oó]n|tema|m[oó]dulo|unidad)\s*)?(\d+)`)
	anyNumberRe    = regexp.MustCompile(`(\d+)`)
)

// TitleOrdinal 从课时标题解析排序键
//
//	"Sesión 2: Clase 3" -> 2003
//	"Sesión 2"          -> 2000
//	"Clase 4 - Bucles"  -> 4000
//	"Intro (parte 7)"   -> 7000
//	"Bienvenida"        -> NoOrdinal
func TitleOrdinal(title string) int {
	if m := sessionClassRe.FindStringSubmatch(title); m != nil {
		return atoiCapped(m[1])*1000 + atoiCapped(m[2])
	}
	if m := sessionRe.FindStringSubmatch(title); m != nil {
		return atoiCapped(m[1]) * 1000
	}
	if m := leadingRe.FindStringSubmatch(title); m != nil {
		return atoiCapped(m[1]) * 1000
	}
	if m := anyNumberRe.FindStringSubmatch(title); m != nil {
		return atoiCapped(m[1]) * 1000
	}
	return NoOrdinal
}

// 超长数字按 999 处理，避免乘法溢出越过哨兵
func atoiCapped(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n > 999 {
		return 999
	}
	return n
}

// hasExplicitOrder 所有课时都有互不相同的正 order_index
func hasExplicitOrder(lessons []model.Lesson) bool {
	seen := make(map[int]struct{}, len(lessons))
	for _, l := range lessons {
		if l.OrderIndex <= 0 {
			return false
		}
		if _, dup := seen[l.OrderIndex]; dup {
			return false
		}
		seen[l.OrderIndex] = struct{}{}
	}
	return true
}

// SortLessons 返回课程内课时的确定顺序，不修改入参
func SortLessons(lessons []model.Lesson) []model.Lesson {
	sorted := make([]model.Lesson, len(lessons))
	copy(sorted, lessons)

	if hasExplicitOrder(sorted) {
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].OrderIndex < sorted[j].OrderIndex
		})
		return sorted
	}

	keys := make(map[uint]int, len(sorted))
	for _, l := range sorted {
		keys[l.ID] = TitleOrdinal(l.Title)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		ki, kj := keys[sorted[i].ID], keys[sorted[j].ID]
		if ki != kj {
			return ki < kj
		}
		if sorted[i].OrderIndex != sorted[j].OrderIndex {
			return sorted[i].OrderIndex < sorted[j].OrderIndex
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

// NextLesson 返回排序后 currentID 的下一课时
func NextLesson(sorted []model.Lesson, currentID uint) (model.Lesson, bool) {
	for i, l := range sorted {
		if l.ID == currentID {
			if i+1 < len(sorted) {
				return sorted[i+1], true
			}
			return model.Lesson{}, false
		}
	}
	return model.Lesson{}, false
}

func IsFirstLesson(sorted []model.Lesson, id uint) bool {
	return len(sorted) > 0 && sorted[0].ID == id
}
