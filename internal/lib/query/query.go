// Package query строит параметризованные выборки из параметров HTTP-запроса.
//
// Builder принимает url.Values и схему ресурса и по шагам накапливает
// предикаты, порядок сортировки, проекцию и пагинацию:
//
//	q := query.New(schema, r.URL.Query()).Filter().Sort().LimitFields().Paginate().Build()
//	sqlText, args := q.SQL("is_deleted = false")
//
// Имена полей и операторы проверяются по схеме, значения всегда передаются
// как параметры, поэтому строка запроса клиента не попадает в SQL как текст.
// Неизвестные поля и операторы молча отбрасываются.
package query

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Op оператор сравнения в предикате.
type Op string

// Поддерживаемые операторы.
const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
	OpNin Op = "nin"
)

// Значения пагинации по умолчанию.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Зарезервированные параметры не превращаются в фильтры.
const (
	ParamPage   = "page"
	ParamSort   = "sort"
	ParamLimit  = "limit"
	ParamFields = "fields"
)

var (
	reserved = map[string]struct{}{
		ParamPage:   {},
		ParamSort:   {},
		ParamLimit:  {},
		ParamFields: {},
	}

	rangeOps      = map[Op]struct{}{OpGt: {}, OpGte: {}, OpLt: {}, OpLte: {}}
	membershipOps = map[Op]struct{}{OpIn: {}, OpNin: {}}

	// name[gte]
	keyPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\[([a-z]+)\]$`)
)

// Field описывает публичное поле ресурса.
type Field struct {
	Column string // колонка в таблице
	Type   string // SQL-тип, к которому приводится значение параметра
	Select string // выражение для SELECT, по умолчанию Column
	Filter bool   // поле можно фильтровать
	Sort   bool   // по полю можно сортировать
	Hidden bool   // поле не попадает в проекцию по умолчанию
}

func (f Field) selectExpr() string {
	if f.Select != "" {
		return f.Select
	}
	return f.Column
}

// Schema описывает ресурс, к которому строится запрос.
type Schema struct {
	Table    string
	Fields   map[string]Field
	Order    []string // порядок полей в проекции по умолчанию
	Key      string   // поле, которое всегда присутствует в явной проекции
	Sequence string   // колонка порядка вставки
}

// Predicate условие на одно поле.
type Predicate struct {
	Field  string
	Op     Op
	Values []string
}

// SortKey поле сортировки и направление.
type SortKey struct {
	Field string
	Desc  bool
}

// Query результат работы Builder.
type Query struct {
	Predicates []Predicate
	Sort       []SortKey
	Fields     []string
	Limit      int
	Offset     int

	schema Schema
}

// Builder накапливает преобразования запроса.
type Builder struct {
	params url.Values
	q      Query
}

// New создаёт Builder для схемы и параметров запроса.
func New(schema Schema, params url.Values) *Builder {
	if params == nil {
		params = url.Values{}
	}
	return &Builder{
		params: params,
		q:      Query{schema: schema},
	}
}

// Filter добавляет равенства и диапазонные условия gte, gt, lte, lt.
func (b *Builder) Filter() *Builder {
	return b.filter(rangeOps)
}

// AdvancedFilter добавляет равенства и условия вхождения in, nin.
func (b *Builder) AdvancedFilter() *Builder {
	return b.filter(membershipOps)
}

func (b *Builder) filter(allowed map[Op]struct{}) *Builder {
	keys := make([]string, 0, len(b.params))
	for key := range b.params {
		if _, ok := reserved[key]; !ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		values := b.params[key]
		if len(values) == 0 {
			continue
		}

		name, op := key, OpEq
		if m := keyPattern.FindStringSubmatch(key); m != nil {
			name, op = m[1], Op(m[2])
			if _, ok := allowed[op]; !ok {
				continue
			}
		}

		field, ok := b.q.schema.Fields[name]
		if !ok || !field.Filter {
			continue
		}

		switch {
		case op == OpEq && len(values) > 1:
			b.q.Predicates = append(b.q.Predicates, Predicate{Field: name, Op: OpIn, Values: values})
		case op == OpIn || op == OpNin:
			list := splitList(values)
			if len(list) == 0 {
				continue
			}
			b.q.Predicates = append(b.q.Predicates, Predicate{Field: name, Op: op, Values: list})
		default:
			b.q.Predicates = append(b.q.Predicates, Predicate{Field: name, Op: op, Values: values[:1]})
		}
	}
	return b
}

// Sort разбирает параметр sort вида "name,-createdAt".
func (b *Builder) Sort() *Builder {
	raw := b.params.Get(ParamSort)
	if raw == "" {
		return b
	}
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		desc := strings.HasPrefix(item, "-")
		name := strings.TrimPrefix(item, "-")
		field, ok := b.q.schema.Fields[name]
		if !ok || !field.Sort {
			continue
		}
		b.q.Sort = append(b.q.Sort, SortKey{Field: name, Desc: desc})
	}
	return b
}

// LimitFields задаёт проекцию по параметру fields.
//
// "a,b" оставляет только перечисленные поля и ключ, "-a" исключает поле
// из проекции по умолчанию. Без параметра скрытые поля не выбираются.
func (b *Builder) LimitFields() *Builder {
	raw := b.params.Get(ParamFields)
	if raw == "" {
		b.q.Fields = b.q.schema.defaultFields()
		return b
	}

	var include, exclude []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if strings.HasPrefix(item, "-") {
			exclude = append(exclude, strings.TrimPrefix(item, "-"))
			continue
		}
		if item != "" {
			include = append(include, item)
		}
	}

	if len(include) == 0 {
		excluded := make(map[string]struct{}, len(exclude))
		for _, name := range exclude {
			excluded[name] = struct{}{}
		}
		var fields []string
		for _, name := range b.q.schema.defaultFields() {
			if _, skip := excluded[name]; !skip {
				fields = append(fields, name)
			}
		}
		b.q.Fields = fields
		return b
	}

	seen := make(map[string]struct{}, len(include)+1)
	var fields []string
	if key := b.q.schema.Key; key != "" {
		fields = append(fields, key)
		seen[key] = struct{}{}
	}
	for _, name := range include {
		if _, ok := b.q.schema.Fields[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		fields = append(fields, name)
	}
	b.q.Fields = fields
	return b
}

// Paginate вычисляет LIMIT и OFFSET из page и limit.
// Нечисловые и неположительные значения заменяются значениями по умолчанию.
func (b *Builder) Paginate() *Builder {
	page := positiveInt(b.params.Get(ParamPage), DefaultPage)
	limit := positiveInt(b.params.Get(ParamLimit), DefaultLimit)
	b.q.Limit = limit
	// При переполнении смещение упирается в MaxInt: такая страница пуста.
	if page-1 > math.MaxInt/limit {
		b.q.Offset = math.MaxInt
	} else {
		b.q.Offset = (page - 1) * limit
	}
	return b
}

// Build возвращает накопленный запрос.
func (b *Builder) Build() Query {
	q := b.q
	if len(q.Fields) == 0 {
		q.Fields = q.schema.defaultFields()
	}
	return q
}

// SQL формирует SELECT с плейсхолдерами $n. Условия scope добавляются
// к WHERE без изменений и должны быть константами вызывающего кода.
func (q Query) SQL(scope ...string) (string, []any) {
	var (
		sb    strings.Builder
		args  []any
		where []string
	)

	bind := func(value, typ string) string {
		args = append(args, value)
		if typ == "" || typ == "text" {
			return fmt.Sprintf("$%d::text", len(args))
		}
		return fmt.Sprintf("$%d::text::%s", len(args), typ)
	}

	sb.WriteString("SELECT ")
	for i, name := range q.Fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		field := q.schema.Fields[name]
		sb.WriteString(field.selectExpr())
		sb.WriteString(` AS "`)
		sb.WriteString(name)
		sb.WriteString(`"`)
	}
	sb.WriteString(" FROM ")
	sb.WriteString(q.schema.Table)

	where = append(where, scope...)
	for _, p := range q.Predicates {
		field := q.schema.Fields[p.Field]
		switch p.Op {
		case OpIn, OpNin:
			placeholders := make([]string, 0, len(p.Values))
			for _, v := range p.Values {
				placeholders = append(placeholders, bind(v, field.Type))
			}
			keyword := "IN"
			if p.Op == OpNin {
				keyword = "NOT IN"
			}
			where = append(where, fmt.Sprintf("%s %s (%s)", field.Column, keyword, strings.Join(placeholders, ", ")))
		default:
			where = append(where, fmt.Sprintf("%s %s %s", field.Column, p.Op.sql(), bind(p.Values[0], field.Type)))
		}
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	var order []string
	for _, key := range q.Sort {
		dir := "ASC"
		if key.Desc {
			dir = "DESC"
		}
		order = append(order, q.schema.Fields[key.Field].Column+" "+dir)
	}
	if q.schema.Sequence != "" {
		order = append(order, q.schema.Sequence+" ASC")
	}
	if len(order) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(order, ", "))
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if q.Offset > 0 {
		args = append(args, q.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	return sb.String(), args
}

func (op Op) sql() string {
	switch op {
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	default:
		return "="
	}
}

func (s Schema) defaultFields() []string {
	fields := make([]string, 0, len(s.Order))
	for _, name := range s.Order {
		if f, ok := s.Fields[name]; ok && !f.Hidden {
			fields = append(fields, name)
		}
	}
	return fields
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func positiveInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
