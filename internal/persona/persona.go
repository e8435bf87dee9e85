// Package persona labels a reader from the shape of their library.
package persona

import (
	"strings"
	"unicode"

	"github.com/justyntemme/booklens/internal/models"
	"github.com/justyntemme/booklens/internal/progress"
)

// Persona identifiers
const (
	KnowledgeCollector = "knowledge_collector"
	EmotionalReader    = "emotional_reader"
	MysteryDetective   = "mystery_detective"
	CompletionMaster   = "completion_master"
	ImmersiveRunner    = "immersive_runner"
	BalancedReader     = "balanced_reader"
)

// Genres recognized by the classifier
const (
	GenreNonfiction = "nonfiction"
	GenreFiction    = "fiction"
	GenreMystery    = "mystery"
	GenreThriller   = "thriller"
	GenreUnknown    = "unknown"
)

// Thresholds
const (
	majorityRatio        = 0.5
	completionRateCutoff = 0.7
	immersiveSeconds     = 3600
)

// Personas holds the display metadata of every label
var Personas = map[string]models.Persona{
	KnowledgeCollector: {ID: KnowledgeCollector, Name: "지식 수집가", Icon: "📚", Color: "blue", Description: "다양한 분야의 지식을 탐구하는 탐험가"},
	EmotionalReader:    {ID: EmotionalReader, Name: "감성 소설러", Icon: "💭", Color: "purple", Description: "감정과 이야기에 깊이 빠져드는 독서가"},
	MysteryDetective:   {ID: MysteryDetective, Name: "추리 탐정", Icon: "🔍", Color: "indigo", Description: "수수께끼와 미스터리를 즐기는 탐정"},
	CompletionMaster:   {ID: CompletionMaster, Name: "완독 마스터", Icon: "🏆", Color: "gold", Description: "시작한 책을 끝까지 완주하는 완성주의자"},
	ImmersiveRunner:    {ID: ImmersiveRunner, Name: "몰입 러너", Icon: "⚡", Color: "green", Description: "책 속 세계에 깊이 빠져드는 몰입형 독서가"},
	BalancedReader:     {ID: BalancedReader, Name: "균형 잡힌 독서가", Icon: "⚖️", Color: "gray", Description: "다양한 장르를 균형있게 즐기는 독서가"},
}

// Title keywords per genre, checked in inference order
var genreKeywords = []struct {
	genre    string
	keywords []string
}{
	{GenreNonfiction, []string{
		"심리", "경제", "경영", "역사", "철학", "과학", "기술", "자기계발", "인문", "사회", "정치",
		"비즈니스", "리더십", "성공", "투자", "재테크", "건강", "다이어트", "요리", "여행", "에세이",
		"인물", "전기", "회고록",
		"psychology", "economics", "business", "history", "philosophy", "science", "technology",
		"self-help", "politics", "leadership", "success", "investing", "finance", "health", "diet",
		"cooking", "travel", "essay", "biography", "memoir", "nonfiction",
	}},
	{GenreMystery, []string{
		"추리", "미스터리", "스릴러", "서스펜스", "범죄", "탐정", "의문", "수사", "살인",
		"mystery", "detective", "crime", "murder", "investigation",
	}},
	{GenreThriller, []string{
		"스릴러", "공포", "호러", "긴장", "서스펜스", "스파이", "액션",
		"thriller", "horror", "suspense", "spy", "action",
	}},
	{GenreFiction, []string{
		"소설", "로맨스", "판타지", "무협", "라이트노벨", "만화", "웹툰",
		"novel", "romance", "fantasy", "fiction", "manga", "comic",
	}},
}

// InferGenre maps a title to a genre by keyword. Hangul keywords match
// anywhere in the title; Latin keywords match whole words, optionally plural.
func InferGenre(title string) string {
	lower := strings.ToLower(title)
	if lower == "" {
		return GenreUnknown
	}
	words := titleWords(lower)
	for _, g := range genreKeywords {
		for _, kw := range g.keywords {
			if matchKeyword(lower, words, kw) {
				return g.genre
			}
		}
	}
	return GenreUnknown
}

func titleWords(lower string) map[string]bool {
	words := map[string]bool{}
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}) {
		words[w] = true
	}
	return words
}

func matchKeyword(lower string, words map[string]bool, kw string) bool {
	if isHangul(kw) {
		return strings.Contains(lower, kw)
	}
	return words[kw] || words[kw+"s"] || words[kw+"es"]
}

func isHangul(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}

// genreOf prefers the explicit genre over the title heuristic
func genreOf(book models.Book) string {
	g := strings.ToLower(strings.TrimSpace(book.Genre))
	if g == "" {
		return InferGenre(book.Title)
	}
	switch g {
	case GenreNonfiction, GenreFiction, GenreMystery, GenreThriller:
		return g
	}
	return GenreUnknown
}

func isTracked(book models.Book) bool {
	switch book.Status {
	case models.StatusReading, models.StatusCompleted:
		return true
	}
	return progress.IsCompleted(book)
}

// Classify returns the persona for a library. It is a pure function of books.
func Classify(books []models.Book) models.Persona {
	var tracked []models.Book
	for _, b := range books {
		if isTracked(b) {
			tracked = append(tracked, b)
		}
	}
	if len(tracked) == 0 {
		return Personas[BalancedReader]
	}

	counts := map[string]int{}
	for _, b := range tracked {
		counts[genreOf(b)]++
	}
	total := float64(len(tracked))
	nonfiction := float64(counts[GenreNonfiction]) / total
	fiction := float64(counts[GenreFiction]) / total
	mystery := float64(counts[GenreMystery]) / total
	thriller := float64(counts[GenreThriller]) / total

	var completed, timed int
	var readingTime int64
	for _, b := range books {
		if !progress.IsCompleted(b) {
			continue
		}
		completed++
		if b.TotalReadingTime > 0 {
			timed++
			readingTime += b.TotalReadingTime
		}
	}
	completionRate := float64(completed) / float64(len(books))
	var avgTime float64
	if timed > 0 {
		avgTime = float64(readingTime) / float64(timed)
	}

	switch {
	case nonfiction > majorityRatio:
		return Personas[KnowledgeCollector]
	case fiction > majorityRatio:
		return Personas[EmotionalReader]
	}

	suspense := max(mystery, thriller)
	if suspense > 0 && suspense >= nonfiction && suspense >= fiction {
		return Personas[MysteryDetective]
	}

	switch {
	case completionRate > completionRateCutoff:
		return Personas[CompletionMaster]
	case avgTime > immersiveSeconds:
		return Personas[ImmersiveRunner]
	}
	return Personas[BalancedReader]
}
