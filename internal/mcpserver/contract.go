package mcpserver

// ExportFormatContract describes the annotated_items.json export so LLM
// consumers can read and produce it.
const ExportFormatContract = `# annotated_items.json

The export is a single JSON array with one object per imported file, in
import order. Files that were never annotated are included with empty
strings.

## Object

| key        | type   | notes                                            |
|------------|--------|--------------------------------------------------|
| fileName   | string | name as picked; not unique, duplicates may occur |
| fileObject | object | only when the server enables it; see below       |
| problem    | string | free text, may be empty                          |
| class      | string | free text, may be empty                          |

When present, fileObject is {"key", "size_bytes", "content_type"}: the storage
key of the payload, its size and its sniffed content type.

## Formatting

- Two-space indentation, keys in the order above.
- No trailing newline. An empty workspace exports as ` + "`[]`" + `.
- Characters such as <, > and & are written literally.

## Example

` + "```" + `json
[
  {
    "fileName": "a.stl",
    "problem": "",
    "class": ""
  },
  {
    "fileName": "b.stl",
    "problem": "",
    "class": "Bracket"
  }
]
` + "```" + `

## Editing

- Annotate with set_annotation using the index from list_files; names can
  repeat, indexes cannot.
- Importing again replaces every file and discards all annotations. Export
  first.
`
