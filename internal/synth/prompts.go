package synth

// Prompt templates for the two-step pipeline. Step one is pure
// normalization and asks for no structure beyond bullet notes; step two is
// the structured-extraction step and is the only one that requests JSON.

const cleanSystemPrompt = `You are a meticulous research assistant. You receive messy, unstructured notes about a single person gathered from multiple submissions. Your job is to clean and normalize them. Do not invent facts. Do not drop facts. Resolve obvious duplicates.`

const cleanUserTemplate = `Rewrite the following raw text as concise bullet-point notes about the person. Group related facts together, keep every concrete detail, and preserve the order in which information was submitted when facts conflict (later submissions win).

Raw text:

%s`

const personaSystemPrompt = `You are an expert profile writer. You receive cleaned bullet-point notes about a single person and produce a comprehensive persona profile as a single JSON object. Respond with JSON only, no commentary. Use this shape, omitting sections you have no information for:

{
  "meta": {"name": "", "role": "", "location": ""},
  "identity": {"core_description": ""},
  "background": {"education": "", "career": ""},
  "interests": [],
  "personality": {"traits": []},
  "relationships": {},
  "goals": []
}`

const personaUserTemplate = `Cleaned notes about the person:

%s

Produce the persona JSON object now.`
