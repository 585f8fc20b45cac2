package model

// educationLevels — допустимые уровни образования в порядке отображения.
// Значения совпадают с CHECK-ограничением колонки application_forms.education.
var educationLevels = []string{
	"Ensino Fundamental",
	"Ensino Médio",
	"Técnico em Informática",
	"Tecnólogo em Análise e Desenvolvimento de Sistemas",
	"Curso Superior de Tecnologia em Redes de Computadores",
	"Bacharelado em Ciência da Computação",
	"Bacharelado em Sistemas de Informação",
	"Bacharelado em Engenharia de Software",
	"Pós-graduação/Especialização",
	"Mestrado",
	"Doutorado",
}

// EducationLevels возвращает копию списка уровней образования.
func EducationLevels() []string {
	out := make([]string, len(educationLevels))
	copy(out, educationLevels)
	return out
}

// IsEducationLevel проверяет точное совпадение со списком.
func IsEducationLevel(s string) bool {
	for _, lvl := range educationLevels {
		if lvl == s {
			return true
		}
	}
	return false
}
