package service

import "strings"

// Dice — коэффициент Сёренсена–Дайса по мультимножеству биграмм, [0..1].
// Пробелы не учитываются; пустая строка ни на что не похожа,
// строки короче двух символов дают 0 (кроме равных).
func Dice(a, b string) float64 {
	ra := []rune(stripSpaces(a))
	rb := []rune(stripSpaces(b))
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	if string(ra) == string(rb) {
		return 1
	}
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	bigrams := make(map[[2]rune]int, len(ra)-1)
	for i := 0; i < len(ra)-1; i++ {
		bigrams[[2]rune{ra[i], ra[i+1]}]++
	}

	inter := 0
	for i := 0; i < len(rb)-1; i++ {
		g := [2]rune{rb[i], rb[i+1]}
		if n := bigrams[g]; n > 0 {
			bigrams[g] = n - 1
			inter++
		}
	}
	return 2 * float64(inter) / float64(len(ra)+len(rb)-2)
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
