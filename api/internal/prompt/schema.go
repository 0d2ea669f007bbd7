package prompt

// HintsSchema describes the envelope both stages must answer with.
// "hints" is optional: a reply without it is well-formed but carries no hints.
const HintsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "hints",
  "type": "object",
  "properties": {
    "hints": {
      "type": "array",
      "items": { "type": "string" }
    }
  }
}`
