package search

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	"multisearch/internal/catalog"

	"github.com/google/go-cmp/cmp"
)

const squareFeature = `{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[0,1],[0,0]]]}}`

func testFields() []catalog.FieldDescriptor {
	return []catalog.FieldDescriptor{
		{Name: "id", SimpleType: catalog.TypeString},
		{Name: "title", SimpleType: catalog.TypeText},
		{Name: "maker", SimpleType: catalog.TypeString},
		{Name: "year", SimpleType: catalog.TypeNumeric},
		{Name: "acquired", SimpleType: catalog.TypeDate},
		{Name: "category", SimpleType: catalog.TypeList},
		{Name: "geometry", SimpleType: catalog.TypePoint, Nullable: true},
		{Name: "payload", SimpleType: catalog.TypeUnknown},
	}
}

func testOptions(t *testing.T, vendor string) Options {
	t.Helper()
	d, err := LookupDialect(vendor, DialectOptions{})
	if err != nil {
		t.Fatalf("LookupDialect: %v", err)
	}
	return Options{
		Database:         "museum",
		Table:            "items",
		KeyField:         "id",
		MainSubjectField: "title",
		OrderBy:          "natsort",
		GeographicField:  "geometry",
		Dialect:          d,
	}
}

func req(fields map[string]string) Request {
	return NormalizeRequest(fields, DefaultIgnoredKeys)
}

func TestNormalizeRequestStripsControlKeys(t *testing.T) {
	r := NormalizeRequest(map[string]string{
		"search":       "vase",
		"page":         "3",
		"exportFormat": " CSV ",
		"action":       "search",
		"maker":        "  ",
	}, DefaultIgnoredKeys)

	if diff := cmp.Diff(map[string]string{"search": "vase"}, r.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if r.Page != "3" || r.ExportFormat != "csv" {
		t.Fatalf("unexpected control values: page=%q export=%q", r.Page, r.ExportFormat)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]string
		geoKey string
		want   Mode
	}{
		{"empty", map[string]string{}, "geometry", ModeNone},
		{"search only", map[string]string{"search": "x"}, "geometry", ModeSimple},
		{"search and geometry", map[string]string{"search": "x", "geometry": "{}"}, "geometry", ModeSimple},
		{"geometry only", map[string]string{"geometry": "{}"}, "geometry", ModeGeographicOnly},
		{"geometry disabled", map[string]string{"geometry": "{}"}, "", ModeAdvanced},
		{"search plus field", map[string]string{"search": "x", "maker": "y"}, "geometry", ModeAdvanced},
		{"fields", map[string]string{"maker": "y"}, "geometry", ModeAdvanced},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(Request{Fields: tc.fields}, tc.geoKey); got != tc.want {
				t.Fatalf("Classify = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSimpleSearchIgnoresCatalog(t *testing.T) {
	for name, fields := range map[string][]catalog.FieldDescriptor{
		"full catalog":  testFields(),
		"empty catalog": nil,
	} {
		t.Run(name, func(t *testing.T) {
			out, err := Build(req(map[string]string{"search": "vase"}), fields, testOptions(t, "mysql"))
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			if out.Mode != ModeSimple {
				t.Fatalf("mode = %v", out.Mode)
			}
			sql, args, err := out.Query.WhereSQL()
			if err != nil {
				t.Fatalf("WhereSQL: %v", err)
			}
			if sql != "(id = ? OR title REGEXP ?)" {
				t.Fatalf("unexpected where %q", sql)
			}
			want := []any{"vase", `(^|[^[:alnum:]_])vase([^[:alnum:]_]|$)`}
			if diff := cmp.Diff(want, args); diff != "" {
				t.Fatalf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSimpleSearchNeverTranslatesWildcards(t *testing.T) {
	out, err := Build(req(map[string]string{"search": "70*"}), nil, testOptions(t, "mysql"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_, args, _ := out.Query.WhereSQL()
	if args[0] != "70*" {
		t.Fatalf("key field must be exact in simple mode, got %v", args[0])
	}
	if strings.Contains(args[1].(string), "(.*)") {
		t.Fatalf("simple mode must not expand wildcards: %v", args[1])
	}
}

func TestAdvancedKeyFieldWildcard(t *testing.T) {
	out, err := Build(req(map[string]string{"id": "70*"}), testFields(), testOptions(t, "mysql"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if out.Mode != ModeAdvanced {
		t.Fatalf("mode = %v", out.Mode)
	}
	sql, args, _ := out.Query.WhereSQL()
	if sql != "(id LIKE ?)" {
		t.Fatalf("unexpected where %q", sql)
	}
	if diff := cmp.Diff([]any{"70%"}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestAdvancedDispatchAndDropping(t *testing.T) {
	out, err := Build(req(map[string]string{
		"maker":    "Wedg*",
		"year":     "1790",
		"acquired": "1901-05-01",
		"category": "ceramics",
		"colour":   "blue",
		"search":   "ignored",
	}), testFields(), testOptions(t, "postgres"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	sql, args, _ := out.Query.WhereSQL()
	wantSQL := "(CAST(acquired AS TEXT) = ? AND CAST(category AS TEXT) = ? AND maker ~* ? AND year = ?)"
	if sql != wantSQL {
		t.Fatalf("where = %q, want %q", sql, wantSQL)
	}
	wantArgs := []any{"1901-05-01", "ceramics", `(^|[^[:alnum:]_])Wedg(.*)([^[:alnum:]_]|$)`, "1790"}
	if diff := cmp.Diff(wantArgs, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}

	sel, selArgs, err := out.Query.SelectBuilder().ToSql()
	if err != nil {
		t.Fatalf("ToSql: %v", err)
	}
	wantSel := "SELECT * FROM museum.items WHERE (CAST(acquired AS TEXT) = $1 AND CAST(category AS TEXT) = $2 AND maker ~* $3 AND year = $4) ORDER BY natsort"
	if sel != wantSel {
		t.Fatalf("select = %q, want %q", sel, wantSel)
	}
	if len(selArgs) != 4 {
		t.Fatalf("expected 4 bound values, got %v", selArgs)
	}
}

func TestAdvancedAllUnknownIsInvalid(t *testing.T) {
	_, err := Build(req(map[string]string{"colour": "blue", "shape": "round"}), testFields(), testOptions(t, "mysql"))
	if !errors.Is(err, ErrInvalidSearchParameters) {
		t.Fatalf("expected ErrInvalidSearchParameters, got %v", err)
	}

	_, err = Build(req(map[string]string{"page": "2"}), testFields(), testOptions(t, "mysql"))
	if !errors.Is(err, ErrInvalidSearchParameters) {
		t.Fatalf("expected ErrInvalidSearchParameters for empty request, got %v", err)
	}
}

func TestUnsupportedFieldTypeFailsLoudly(t *testing.T) {
	_, err := Build(req(map[string]string{"payload": "x"}), testFields(), testOptions(t, "mysql"))
	if !errors.Is(err, ErrUnsupportedFieldType) {
		t.Fatalf("expected ErrUnsupportedFieldType, got %v", err)
	}
}

func TestWordPatternIsInjectionSafe(t *testing.T) {
	p := WordPattern(".*", false)
	if p != `(^|[^[:alnum:]_])\.\*([^[:alnum:]_]|$)` {
		t.Fatalf("unexpected pattern %q", p)
	}
	re := regexp.MustCompile(p)
	if !re.MatchString("see .* here") {
		t.Fatalf("pattern must match the literal characters")
	}
	if re.MatchString("anything at all") {
		t.Fatalf("pattern must not behave as a wildcard")
	}
}

func TestWordPatternRespectsBoundaries(t *testing.T) {
	re := regexp.MustCompile(WordPattern("vase", false))
	for s, want := range map[string]bool{
		"vase":           true,
		"a vase, blue":   true,
		"(vase)":         true,
		"vases":          false,
		"avase":          false,
		"vase_fragment":  false,
	} {
		if got := re.MatchString(s); got != want {
			t.Errorf("match %q = %v, want %v", s, got, want)
		}
	}

	wild := regexp.MustCompile(WordPattern("Wedg*", true))
	if !wild.MatchString("Josiah Wedgwood") {
		t.Fatalf("wildcard pattern should match a word prefix")
	}
}

func TestFixedConstraintSurvivesOrMode(t *testing.T) {
	opts := testOptions(t, "mysql")
	opts.FixedConstraint = "public = 1"
	out, err := Build(req(map[string]string{"search": "vase"}), nil, opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sql, _, _ := out.Query.WhereSQL()
	if sql != "((id = ? OR title REGEXP ?) AND (public = 1))" {
		t.Fatalf("unexpected where %q", sql)
	}
}

func TestGeographicOnlyPostgresPrefilter(t *testing.T) {
	out, err := Build(req(map[string]string{"geometry": squareFeature}), testFields(), testOptions(t, "postgres"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if out.Mode != ModeGeographicOnly {
		t.Fatalf("mode = %v", out.Mode)
	}
	sql, args, _ := out.Query.WhereSQL()
	if sql != "(ST_Contains(ST_GeomFromText('POLYGON((0 0,1 0,0 1,0 0))'), geometry))" {
		t.Fatalf("unexpected where %q", sql)
	}
	if len(args) != 0 {
		t.Fatalf("geometry literal must not add bound values: %v", args)
	}
	wantDS := "(SELECT * FROM museum.items WHERE geometry && ST_GeomFromText('POLYGON((0 0,1 0,1 1,0 1,0 0))')) AS items"
	if out.Query.Datasource != wantDS {
		t.Fatalf("datasource = %q, want %q", out.Query.Datasource, wantDS)
	}
}

func TestPrefilterIsNoOpWithoutCapability(t *testing.T) {
	for _, vendor := range []string{"generic", "mysql"} {
		out, err := Build(req(map[string]string{"geometry": squareFeature}), testFields(), testOptions(t, vendor))
		if err != nil {
			t.Fatalf("%s: Build: %v", vendor, err)
		}
		if out.Query.Datasource != "museum.items" {
			t.Fatalf("%s: expected literal table, got %q", vendor, out.Query.Datasource)
		}
	}
}

func TestMySQLTrueWithinPrefilter(t *testing.T) {
	opts := testOptions(t, "mysql")
	d, _ := LookupDialect("mysql", DialectOptions{TrueWithin: true})
	opts.Dialect = d

	out, err := Build(req(map[string]string{"geometry": squareFeature}), testFields(), opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sql, _, _ := out.Query.WhereSQL()
	if sql != "(trueWithin(geometry, ST_GeomFromText('POLYGON((0 0,1 0,0 1,0 0))')))" {
		t.Fatalf("unexpected where %q", sql)
	}
	if !strings.HasPrefix(out.Query.Datasource, "(SELECT * FROM museum.items WHERE MBRContains(") {
		t.Fatalf("expected MBR prefilter, got %q", out.Query.Datasource)
	}
}

func TestBadGeometryIsUnsatisfiable(t *testing.T) {
	out, err := Build(req(map[string]string{
		"geometry": `{"type":"Point","coordinates":[0,0]}`,
		"maker":    "Wedgwood",
	}), testFields(), testOptions(t, "postgres"))
	if err != nil {
		t.Fatalf("bad geometry must not fail the search: %v", err)
	}
	sql, _, _ := out.Query.WhereSQL()
	if !strings.Contains(sql, "1=0") {
		t.Fatalf("expected unsatisfiable clause, got %q", sql)
	}
	if out.Query.Datasource != "museum.items" {
		t.Fatalf("no prefilter expected for a failed decode, got %q", out.Query.Datasource)
	}
}

func TestSimpleSearchWithGeometry(t *testing.T) {
	out, err := Build(req(map[string]string{"search": "vase", "geometry": squareFeature}), testFields(), testOptions(t, "postgres"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if out.Mode != ModeSimple || len(out.Clauses) != 2 {
		t.Fatalf("simple search must keep exactly two clauses, got %v / %d", out.Mode, len(out.Clauses))
	}
	sql, _, _ := out.Query.WhereSQL()
	want := "((CAST(id AS TEXT) = ? OR title ~* ?) AND ST_Contains(ST_GeomFromText('POLYGON((0 0,1 0,0 1,0 0))'), geometry))"
	if sql != want {
		t.Fatalf("where = %q, want %q", sql, want)
	}
}

func TestCountBuilderSharesWhere(t *testing.T) {
	out, err := Build(req(map[string]string{"maker": "Wedgwood", "year": "1790"}), testFields(), testOptions(t, "postgres"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	countSQL, countArgs, _ := out.Query.CountBuilder().ToSql()
	if countSQL != "SELECT COUNT(*) FROM museum.items WHERE (maker ~* $1 AND year = $2)" {
		t.Fatalf("unexpected count sql %q", countSQL)
	}
	_, selArgs, _ := out.Query.SelectBuilder().ToSql()
	if diff := cmp.Diff(selArgs, countArgs); diff != "" {
		t.Fatalf("count and select must bind the same values (-select +count):\n%s", diff)
	}
}

func TestLookupDialectUnknown(t *testing.T) {
	if _, err := LookupDialect("oracle", DialectOptions{}); err == nil {
		t.Fatalf("expected error for unknown vendor")
	}
}

func TestTypedColumnsCompareAsText(t *testing.T) {
	tests := []struct {
		name    string
		vendor  string
		fields  map[string]string
		wantSQL string
	}{
		{"postgres simple", "postgres", map[string]string{"search": "vase"}, "(CAST(id AS TEXT) = ? OR title ~* ?)"},
		{"postgres key wildcard", "postgres", map[string]string{"id": "1*"}, "(CAST(id AS TEXT) LIKE ?)"},
		{"mysql key wildcard", "mysql", map[string]string{"id": "1*"}, "(id LIKE ?)"},
		{"generic simple", "generic", map[string]string{"search": "vase"}, "(id = ? OR title REGEXP ?)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := testFields()
			fields[0].SimpleType = catalog.TypeNumeric
			out, err := Build(req(tt.fields), fields, testOptions(t, tt.vendor))
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			sql, _, _ := out.Query.WhereSQL()
			if sql != tt.wantSQL {
				t.Fatalf("where = %q, want %q", sql, tt.wantSQL)
			}
		})
	}
}

func TestNonNumericValueIsUnsatisfiable(t *testing.T) {
	out, err := Build(req(map[string]string{"year": "seventeen", "maker": "Wedgwood"}), testFields(), testOptions(t, "postgres"))
	if err != nil {
		t.Fatalf("a mistyped number must not fail the search: %v", err)
	}
	sql, args, _ := out.Query.WhereSQL()
	if sql != "(maker ~* ? AND 1=0)" {
		t.Fatalf("unexpected where %q", sql)
	}
	if len(args) != 1 {
		t.Fatalf("the rejected value must not be bound, args %v", args)
	}

	out, err = Build(req(map[string]string{"year": " 1790.5 "}), testFields(), testOptions(t, "postgres"))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	sql, args, _ = out.Query.WhereSQL()
	if sql != "(year = ?)" {
		t.Fatalf("unexpected where %q", sql)
	}
	if diff := cmp.Diff([]any{"1790.5"}, args); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}
