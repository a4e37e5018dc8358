package service

import (
	"strings"
)

// ExcludedUnitMarker — строки, где источник или получатель содержит эту
// метку, не участвуют в сверке.
const ExcludedUnitMarker = "OFTALMOCASA"

// Синонимы названий больниц → каноническое имя (ключи уже нормализованы).
var unitAliases = map[string]string{
	"CASA DE PORTUGAL":                                                         "HOSPITAL CASA DE PORTUGAL",
	"CASA DE PORTUGAL - REDE CASA":                                             "HOSPITAL CASA DE PORTUGAL",
	"HOSPITAL CASA MENSSANA - REDE CASA":                                       "HOSPITAL CASA MENSSANA",
	"HC MENSSANA PARTICULAR - REDE CASA":                                       "HOSPITAL CASA MENSSANA",
	"HOSPITAL EVANGELICO - REDE CASA":                                          "HOSPITAL CASA EVANGELICO",
	"HOSPITAL CASA EVANGÉLICO - REDE CASA":                                     "HOSPITAL CASA EVANGELICO",
	"HOSP.EVANGELICO - REDE CASA":                                              "HOSPITAL CASA EVANGELICO",
	"HOSPITAL CASA EVANGELICO - REDE CASA":                                     "HOSPITAL CASA EVANGELICO",
	"HOSPITAL CASA RIO LARANJEIRAS - REDE CASA":                                "HOSPITAL CASA RIO LARANJEIRAS",
	"HOSPITAL RIO LARANJEIRAS - REDE CASA":                                     "HOSPITAL CASA RIO LARANJEIRAS",
	"HOSPITAL RIO LARANJEIRAS LTDA - REDE CASA":                                "HOSPITAL CASA RIO LARANJEIRAS",
	"HOSPITAL CASA RIO BOTAFOGO - REDE CASA":                                   "HOSPITAL CASA RIO BOTAFOGO",
	"HOSPITAL CASA SANTA CRUZ - REDE CASA":                                     "HOSPITAL CASA SANTA CRUZ",
	"HOSPITAL SANTA CRUZ - REDE CASA":                                          "HOSPITAL CASA SANTA CRUZ",
	"HOSPITAL SANTA CRUZ":                                                      "HOSPITAL CASA SANTA CRUZ",
	"HOSPITAL CASA SAO BERNARDO - REDE CASA":                                   "HOSPITAL CASA SAO BERNARDO",
	"HOSPITAL DE CANCER":                                                       "HOSPITAL CASA PREMIUM",
	"HOSPITAL DE CANCER - REDE CASA":                                           "HOSPITAL CASA PREMIUM",
	"HOSPITAL CASA HOSPITAL DO CANCER - HCHC ADMINISTRACAO E GEST - REDE CASA": "HOSPITAL CASA PREMIUM",
	"HOSPITAL CASA HOSPITAL DO CANCER - REDE CASA":                             "HOSPITAL CASA PREMIUM",
	"HOSPITAL ILHA DO GOVERNADOR":                                              "HOSPITAL CASA ILHA DO GOVERNADOR",
	"HOSPITAL ILHA DO GOVERNADOR - REDE CASA":                                  "HOSPITAL CASA ILHA DO GOVERNADOR",
	"HOSPITAL ILHA DO GOVERNADOR LTDA - REDE CASA":                             "HOSPITAL CASA ILHA DO GOVERNADOR",
}

var dashes = strings.NewReplacer("–", "-", "—", "-")

// NormalizeUnit приводит название подразделения к каноническому виду.
// Неизвестные названия возвращаются очищенными, но без замены.
func NormalizeUnit(name string) string {
	s := dashes.Replace(name)
	s = strings.ToUpper(collapseSpaces(s))
	if canon, ok := unitAliases[s]; ok {
		return canon
	}
	return s
}

// IsExcludedUnit ожидает уже нормализованное имя.
func IsExcludedUnit(norm string) bool {
	return strings.Contains(norm, ExcludedUnitMarker)
}
