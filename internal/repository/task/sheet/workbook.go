package sheet

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	tasksSheet  = "tasks"
	statusSheet = "status"
)

var (
	tasksHeader  = []string{"id", "lecture", "title", "due_time", "created_by", "author", "created_at", "updated_at"}
	statusHeader = []string{"user", "task_id", "is_done"}
)

// Sheet - лист таблицы: строка заголовков и строки строковых ячеек
type Sheet struct {
	Header []string   `yaml:"header"`
	Rows   [][]string `yaml:"rows"`
}

type Workbook struct {
	Sheets map[string]*Sheet `yaml:"sheets"`
}

func newWorkbook() *Workbook {
	return &Workbook{Sheets: map[string]*Sheet{
		tasksSheet:  {Header: append([]string(nil), tasksHeader...), Rows: [][]string{}},
		statusSheet: {Header: append([]string(nil), statusHeader...), Rows: [][]string{}},
	}}
}

// sheet возвращает лист, создавая его и недостающие колонки
func (w *Workbook) sheet(name string, header []string) *Sheet {
	if w.Sheets == nil {
		w.Sheets = map[string]*Sheet{}
	}
	s, ok := w.Sheets[name]
	if !ok || s == nil {
		s = &Sheet{}
		w.Sheets[name] = s
	}
	for _, col := range header {
		if s.column(col) < 0 {
			s.Header = append(s.Header, col)
		}
	}
	return s
}

func (s *Sheet) column(name string) int {
	for i, h := range s.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// Cell - значение ячейки или пустая строка, если колонки или ячейки нет
func (s *Sheet) Cell(row []string, name string) string {
	i := s.column(name)
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Row собирает строку в порядке заголовков листа
func (s *Sheet) Row(values map[string]string) []string {
	row := make([]string, len(s.Header))
	for i, h := range s.Header {
		row[i] = values[strings.ToLower(strings.TrimSpace(h))]
	}
	return row
}

func (s *Sheet) SetCell(row []string, name, value string) []string {
	i := s.column(name)
	if i < 0 {
		return row
	}
	for len(row) <= i {
		row = append(row, "")
	}
	row[i] = value
	return row
}

func readWorkbook(path string) (*Workbook, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return newWorkbook(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("чтение таблицы: %w", err)
	}

	wb := &Workbook{}
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, wb); err != nil {
			return nil, fmt.Errorf("разбор таблицы: %w", err)
		}
	}
	wb.sheet(tasksSheet, tasksHeader)
	wb.sheet(statusSheet, statusHeader)
	return wb, nil
}

// writeWorkbook пишет во временный файл рядом и подменяет им исходный
func writeWorkbook(path string, wb *Workbook) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("создание каталога: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("создание временного файла: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := yaml.NewEncoder(tmp)
	enc.SetIndent(2)
	if err := enc.Encode(wb); err != nil {
		tmp.Close()
		return fmt.Errorf("запись таблицы: %w", err)
	}
	if err := enc.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("запись таблицы: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("закрытие временного файла: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("замена таблицы: %w", err)
	}
	return nil
}
