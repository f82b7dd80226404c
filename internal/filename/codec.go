// Пакет filename — разбор и построение канонических имён файлов выписок.
//
// Формат: FFC_PaymentDelinkedStatement_{Scheme}_{Year}_{FRN}_{Timestamp}.pdf
// Файлы лежат в виртуальной папке outbound/ объектного хранилища.
package filename

import (
	"strconv"
	"strings"

	"github.com/ffcpay/statement-query/internal/domain/model"
)

const (
	// Folder — виртуальная папка выписок в хранилище.
	Folder = "outbound"
	// Prefix — постоянная часть имени файла выписки.
	Prefix = "FFC_PaymentDelinkedStatement_"
	// Extension — расширение файла выписки (регистр учитывается).
	Extension = ".pdf"

	// minSegments — минимальное число сегментов, разделённых "_".
	minSegments = 6
)

// SchemeResolver — поиск аббревиатуры схемы по идентификатору.
// Реализуется scheme.Registry.
type SchemeResolver interface {
	Abbreviation(id int) (string, bool)
}

// Parsed — метаданные, извлечённые из имени файла.
type Parsed struct {
	Scheme    string
	Year      string
	FRN       string
	Timestamp string
}

// Parse разбирает путь или имя файла выписки.
// Префикс директории отбрасывается. Возвращает false, если форма имени некорректна.
func Parse(path string) (*Parsed, bool) {
	name := path
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	parts := strings.Split(name, "_")
	if len(parts) < minSegments {
		return nil, false
	}

	return &Parsed{
		Scheme:    parts[2],
		Year:      parts[3],
		FRN:       parts[4],
		Timestamp: strings.TrimSuffix(parts[5], Extension),
	}, true
}

// Build строит каноническое имя файла выписки (без папки).
func Build(scheme, year, frn, timestamp string) string {
	return Prefix + scheme + "_" + year + "_" + frn + "_" + timestamp + Extension
}

// StoragePath возвращает путь объекта в хранилище.
// Имя без разделителя пути помещается в папку outbound/.
func StoragePath(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	return Folder + "/" + name
}

// IsPDF проверяет расширение .pdf (только нижний регистр).
func IsPDF(name string) bool {
	return strings.HasSuffix(name, Extension)
}

// Matches проверяет соответствие разобранного имени критериям.
// Сравниваются только заданные (ненулевые) поля критериев.
func Matches(p *Parsed, c model.SearchCriteria, schemes SchemeResolver) bool {
	if p == nil {
		return false
	}
	if c.SchemeID != 0 {
		abbrev, ok := schemes.Abbreviation(c.SchemeID)
		if !ok || p.Scheme != abbrev {
			return false
		}
	}
	if c.MarketingYear != 0 && p.Year != strconv.Itoa(c.MarketingYear) {
		return false
	}
	if c.FRN != "" && p.FRN != c.FRN {
		return false
	}
	if c.Timestamp != "" && p.Timestamp != c.Timestamp {
		return false
	}
	return true
}

// BuildPrefix строит префикс для сужения листинга хранилища.
// Части добавляются по порядку, пока заданы: схема, год, FRN, метка времени.
// Для неизвестной схемы возвращается папка outbound целиком.
func BuildPrefix(c model.SearchCriteria, schemes SchemeResolver) string {
	prefix := Folder + "/" + Prefix
	if c.SchemeID == 0 {
		return prefix
	}

	abbrev, ok := schemes.Abbreviation(c.SchemeID)
	if !ok {
		return Folder
	}
	prefix += abbrev + "_"

	if c.MarketingYear == 0 {
		return prefix
	}
	prefix += strconv.Itoa(c.MarketingYear) + "_"

	if c.FRN == "" {
		return prefix
	}
	prefix += c.FRN + "_"

	if c.Timestamp == "" {
		return prefix
	}
	return prefix + c.Timestamp
}

// Record собирает StatementRecord из имени файла.
// Если имя не разбирается, заполняется только Filename.
func Record(name string) model.StatementRecord {
	rec := model.StatementRecord{Filename: name}
	if p, ok := Parse(name); ok {
		rec.Scheme = p.Scheme
		rec.Year = p.Year
		rec.FRN = p.FRN
		rec.Timestamp = p.Timestamp
	}
	return rec
}
