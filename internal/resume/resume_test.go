package resume

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `{"Personal Information":{"Firstname":"Grace","Surname":"Hopper","Birthday":"1906-12-09","Nationality":"US","Marital Status":"","Availability":"","Current Role":"Rear Admiral","Additional Information":""},` +
	`"Working Experience":[{"Title":"Programmer","Location":"Cambridge","Description":"Mark I","Bullet Points":["Wrote the manual","Found the bug"],"Start Date":"1944","End Date":"1949","Company":"Harvard","Website":"","Additional Information":""}],` +
	`"Languages":[{"Name":"English","Level":"Native"}],` +
	`"Skills and Competencies":{"Skills":["Compilers"],"Programming Languages":[{"Name":"COBOL","Proficiency Level":"Expert"}]},` +
	`"Hobbies":["Clocks"],` +
	`"References":{"Navy":{"Name":"Someone","Phone":"555"}}}`

func mustDecode(t *testing.T, data string) *Node {
	t.Helper()
	doc, err := Decode([]byte(data))
	require.NoError(t, err)
	return doc
}

func mustJSON(t *testing.T, n *Node) string {
	t.Helper()
	b, err := json.Marshal(n)
	require.NoError(t, err)
	return string(b)
}

func TestDecodeKeepsKeyOrder(t *testing.T) {
	doc := mustDecode(t, sampleDocument)

	assert.Equal(t, sampleDocument, mustJSON(t, doc))
	assert.Equal(t, []string{"Personal Information", "Working Experience", "Languages", "Skills and Competencies", "Hobbies", "References"}, doc.Keys())
}

func TestDecodeScalars(t *testing.T) {
	doc := mustDecode(t, `{"Age":42,"Active":true,"Note":null}`)

	assert.Equal(t, `{"Age":"42","Active":"true","Note":""}`, mustJSON(t, doc))
}

func TestDecodeRejectsNonRecordRoot(t *testing.T) {
	_, err := Decode([]byte(`"No Data Yet"`))
	assert.ErrorIs(t, err, ErrNotRecord)

	_, err = Decode([]byte(`{"a":`))
	assert.Error(t, err)
}

func TestFormRoundTrip(t *testing.T) {
	doc := mustDecode(t, sampleDocument)

	values := map[string]string{}
	for _, item := range Form(doc, DefaultCatalog()) {
		if item.Kind == ItemInput {
			values[item.Name] = item.Value
		}
	}

	out, err := ApplyForm(doc, values)
	require.NoError(t, err)
	assert.True(t, out.Equal(doc))
	assert.Equal(t, sampleDocument, mustJSON(t, out))
}

func TestFormRoundTripWithPathCharactersInKeys(t *testing.T) {
	const data = `{"a.b":"x","a":{"b":"y"},"Skills (e.g. Go)":["Go"],"[draft]":{"c\\d":"z"}}`
	doc := mustDecode(t, data)

	values := map[string]string{}
	for _, item := range Form(doc, nil) {
		if item.Kind != ItemInput {
			continue
		}
		_, dup := values[item.Name]
		require.False(t, dup, "duplicate input name %q", item.Name)
		values[item.Name] = item.Value
	}
	assert.Contains(t, values, `a\.b`)
	assert.Contains(t, values, "a.b")
	assert.Contains(t, values, `Skills (e\.g\. Go)[0]`)
	assert.Contains(t, values, `\[draft\].c\\d`)

	out, err := ApplyForm(doc, values)
	require.NoError(t, err)
	assert.Equal(t, data, mustJSON(t, out))

	values[`a\.b`] = "edited"
	out, err = ApplyForm(doc, values)
	require.NoError(t, err)
	assert.Equal(t, `{"a.b":"edited","a":{"b":"y"},"Skills (e.g. Go)":["Go"],"[draft]":{"c\\d":"z"}}`, mustJSON(t, out))
}

func TestFormItems(t *testing.T) {
	doc := mustDecode(t, `{"Hobbies":["Chess","Go"],"Personal Information":{"First_name":"Ada"},"Misc":{"a":"b"}}`)

	items := Form(doc, DefaultCatalog())

	var inputs, adds []string
	for _, item := range items {
		switch item.Kind {
		case ItemInput:
			inputs = append(inputs, item.Label+"="+item.Name)
		case ItemAdd:
			adds = append(adds, item.Label+"@"+item.Name)
		}
	}

	assert.Equal(t, []string{
		"Hobbies 1=Hobbies[0]",
		"Hobbies 2=Hobbies[1]",
		"First name=Personal Information.First_name",
		"a=Misc.a",
	}, inputs)
	assert.Equal(t, []string{
		"Add New Hobbies@Hobbies",
		"Add New Entry@Personal Information",
	}, adds)
}

func TestSetFieldUpdatesOnlyTheLeaf(t *testing.T) {
	doc := mustDecode(t, sampleDocument)

	out, err := SetField(doc, MustParsePath("Personal Information.Firstname"), "Ada")
	require.NoError(t, err)

	got, _ := out.Get("Personal Information")
	first, _ := got.Get("Firstname")
	assert.Equal(t, "Ada", first.Text())

	want := mustDecode(t, sampleDocument)
	pi, _ := want.Get("Personal Information")
	pi.set("Firstname", String("Ada"))
	assert.True(t, out.Equal(want))

	// the input document is untouched
	assert.Equal(t, sampleDocument, mustJSON(t, doc))
}

func TestSetFieldCreatesContainers(t *testing.T) {
	doc := Record()

	out, err := SetField(doc, MustParsePath("Education[0].Bullet Points[0]"), "Honours")
	require.NoError(t, err)
	assert.Equal(t, `{"Education":[{"Bullet Points":["Honours"]}]}`, mustJSON(t, out))

	out, err = SetField(out, MustParsePath("Education[0].Bullet Points[1]"), "Thesis")
	require.NoError(t, err)
	assert.Equal(t, `{"Education":[{"Bullet Points":["Honours","Thesis"]}]}`, mustJSON(t, out))
}

func TestSetFieldRejectsMalformedTargets(t *testing.T) {
	doc := mustDecode(t, sampleDocument)

	_, err := SetField(doc, MustParsePath("Hobbies[5]"), "x")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = SetField(doc, MustParsePath("Hobbies.Name"), "x")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = SetField(doc, MustParsePath("Personal Information.Firstname.Inner"), "x")
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = SetField(doc, MustParsePath("Working Experience"), "x")
	assert.ErrorIs(t, err, ErrNotLeaf)

	_, err = SetField(List(), MustParsePath("a"), "x")
	assert.ErrorIs(t, err, ErrNotRecord)
}

func TestAppendWorkingExperience(t *testing.T) {
	doc := mustDecode(t, sampleDocument)
	before, _ := doc.Get("Working Experience")

	out, err := Append(doc, MustParsePath("Working Experience"), DefaultCatalog())
	require.NoError(t, err)

	we, _ := out.Get("Working Experience")
	require.Equal(t, 2, we.Len())
	assert.True(t, we.Item(0).Equal(before.Item(0)), "existing entry must not change")

	added := we.Item(1)
	tmpl, ok := DefaultCatalog().Section("Working Experience")
	require.True(t, ok)
	assert.True(t, added.Equal(tmpl.Entry()))

	for _, f := range added.Fields() {
		if f.Key == "Bullet Points" {
			assert.Equal(t, `["",""]`, mustJSON(t, f.Value))
			continue
		}
		assert.Equal(t, KindString, f.Value.Kind())
		assert.Empty(t, f.Value.Text())
	}

	// the input document is untouched
	assert.Equal(t, sampleDocument, mustJSON(t, doc))
}

func TestAppendUsesEntryTemplates(t *testing.T) {
	doc := mustDecode(t, sampleDocument)
	catalog := DefaultCatalog()

	out, err := Append(doc, MustParsePath("Languages"), catalog)
	require.NoError(t, err)
	langs, _ := out.Get("Languages")
	assert.Equal(t, `{"Name":"","Level":""}`, mustJSON(t, langs.Item(1)))

	out, err = Append(out, MustParsePath("Hobbies"), catalog)
	require.NoError(t, err)
	hobbies, _ := out.Get("Hobbies")
	assert.Equal(t, `["Clocks",""]`, mustJSON(t, hobbies))

	out, err = Append(out, MustParsePath("Skills and Competencies.Programming Languages"), catalog)
	require.NoError(t, err)
	skills, _ := out.Get("Skills and Competencies")
	pl, _ := skills.Get("Programming Languages")
	assert.Equal(t, `[{"Name":"COBOL","Proficiency Level":"Expert"},{"Name":"","Proficiency Level":""}]`, mustJSON(t, pl))

	out, err = Append(out, MustParsePath("Working Experience[0].Bullet Points"), catalog)
	require.NoError(t, err)
	we, _ := out.Get("Working Experience")
	bullets, _ := we.Item(0).Get("Bullet Points")
	assert.Equal(t, 3, bullets.Len())
}

func TestAppendCreatesMissingSection(t *testing.T) {
	out, err := Append(Record(), MustParsePath("Certificates"), DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, `{"Certificates":[{"Title":"","Start Date":"","End Date":"","Institution":"","Additional Information":""}]}`, mustJSON(t, out))
}

func TestAppendNewEntryKeys(t *testing.T) {
	doc := mustDecode(t, sampleDocument)
	catalog := DefaultCatalog()

	out, err := Append(doc, MustParsePath("References"), catalog)
	require.NoError(t, err)
	refs, _ := out.Get("References")
	assert.Equal(t, []string{"Navy", "New Entry 1"}, refs.Keys())

	out, err = Append(out, MustParsePath("References"), catalog)
	require.NoError(t, err)
	refs, _ = out.Get("References")
	assert.Equal(t, []string{"Navy", "New Entry 1", "New Entry 2"}, refs.Keys())

	entry, _ := refs.Get("New Entry 2")
	assert.Equal(t, KindRecord, entry.Kind())
	assert.Equal(t, 0, entry.Len())
}

func TestAppendRecordSectionUsesTemplate(t *testing.T) {
	doc := mustDecode(t, sampleDocument)

	out, err := Append(doc, MustParsePath("Personal Information"), DefaultCatalog())
	require.NoError(t, err)

	pi, _ := out.Get("Personal Information")
	entry, ok := pi.Get("New Entry 1")
	require.True(t, ok)
	tmpl, _ := DefaultCatalog().Section("Personal Information")
	assert.True(t, entry.Equal(tmpl.Node()))
}

func TestAppendWithoutTemplate(t *testing.T) {
	doc := mustDecode(t, `{"Awards":["Turing"]}`)

	_, err := Append(doc, MustParsePath("Awards"), DefaultCatalog())
	assert.ErrorIs(t, err, ErrNoTemplate)

	_, err = Append(doc, MustParsePath("Awards[0]"), DefaultCatalog())
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestNextEntryKeySkipsTakenSuffixes(t *testing.T) {
	rec := Record(KV("New Entry 1", Record()), KV("New Entry 3", Record()))
	assert.Equal(t, "New Entry 2", NextEntryKey(rec))
}
