package mcpserver

// OutlineFormatContract describes the outline text convention that
// model responses and revised outlines are parsed against.
const OutlineFormatContract = `# Beatsheet Outline Format

Every outline is three acts in story order, each a header line followed by
bullet beats.

## Structure

` + "```" + `text
Act I - Setup
- Key beat 1: <one sentence>
- Key beat 2: <one sentence>

Act II - Rising Action
- Key beat 1: <one sentence>

Act III - Climax & Resolution
- Key beat 1: <one sentence>
` + "```" + `

## Rules

1. **Act headers** contain the word "Act" followed by a roman numeral I, II or III.
   Anything after the numeral is ignored. "Act 1" or "act one" inside a beat is
   ordinary text.
2. **Beats** are the non-empty lines under a header. A leading ` + "`" + `- ` + "`" + ` and a
   "Key beat N:" label are stripped. Bare section labels (Setup, Rising Action,
   Climax & Resolution) and bolded labels are ignored.
3. **Beat count** per act is capped at the brief's beats-per-act target (2 to 6).
   Extra beats are dropped; missing beats are left missing.
4. Lines before the first act header are discarded unless the server runs with
   ` + "`" + `outline.default_act_one: true` + "`" + `, in which case they belong to Act I.
5. A response with no recognisable beats is kept verbatim as the outline text.
`
