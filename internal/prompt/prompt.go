// Package prompt builds the instruction sent to the language model. Builders
// are pure functions: the same inputs always produce the same prompt.
//
// The rubric text is a contract with the model (weights, overall_score
// formula, grade table and JSON shape) and must not be reworded casually;
// the response parser and the report emails depend on the shape it asks for.
package prompt

import (
	"fmt"
	"strings"
)

const liveHTMLContext = "\n\nHere is the LIVE HTML fetched directly from %s right now (not cached):\n\n<homepage_html>\n%s\n</homepage_html>\n\nIMPORTANT: Base your technical analysis (meta tags, titles, schema markup, heading structure, internal links, content quality) on this LIVE HTML. The live HTML is the ground truth for what is currently on the site."

const fallbackContext = "\n\nNOTE: Could not fetch live HTML from %s (%s). Base your analysis on your knowledge of this domain and what a typical site like this would have."

const rubric = `

Score each category based on what you ACTUALLY find in the live HTML.

Here is exactly what to check in each category:

META TAGS & TITLES: Check the live HTML <head> for: unique <title> tag with keywords and location, <meta name="description"> present and descriptive, Open Graph tags, Twitter card tags, canonical URL. Penalize if title is just the business name with no keywords.

CONTENT QUALITY: Check the live HTML <body> for: sufficient word count (300+ words on homepage), clear value proposition in the hero/header area, specific metrics or differentiators (not generic marketing speak), testimonials or social proof, clear calls to action.

SCHEMA MARKUP: All JSON-LD schema blocks have been extracted from the FULL page HTML and included below — look for the section labeled "ALL SCHEMA MARKUP BLOCKS". Check for: LocalBusiness schema, FAQPage schema, Service schema, OfferCatalog, AggregateRating, proper nesting and required fields. If multiple schema blocks are present, that is a strong positive signal — score accordingly.

MOBILE FRIENDLINESS: Check for: viewport meta tag, click-to-call links for phone numbers, responsive indicators in CSS, mobile-friendly navigation patterns.

PAGE SPEED: Check for: number and size of external scripts, inline vs external CSS, image optimization hints, lazy loading attributes, render-blocking resources.

LOCAL SEO: Check for: location-specific content, city/region mentions, local landing pages linked from nav, NAP (name, address, phone) consistency, Google Business Profile links.

SCORING WEIGHTS FOR OVERALL SCORE:
Do NOT average all six categories equally. Use these weights to calculate the overall score:
- Content Quality: 25% (most important — Google rewards helpful, specific content)
- Local SEO: 20% (critical for service-area businesses)
- Schema Markup: 20% (directly impacts rich results and AI search citations)
- Meta Tags & Titles: 15% (important but baseline technical hygiene)
- Mobile Friendliness: 12% (table stakes — most sites pass this)
- Page Speed: 8% (Google confirms this is a minor signal, only affects the slowest sites)

Calculate overall_score as: (content * 0.25) + (local * 0.20) + (schema * 0.20) + (meta * 0.15) + (mobile * 0.12) + (performance * 0.08)

Round to the nearest whole number. Then assign overall_grade based on:
95-100 = A+, 90-94 = A, 85-89 = A-, 80-84 = B+, 75-79 = B, 70-74 = B-, 65-69 = C+, 60-64 = C, 55-59 = C-, 50-54 = D+, 45-49 = D, below 45 = F

Respond with ONLY a JSON object — no markdown, no backticks, no explanation:

{"overall_score":<0-100>,"overall_grade":"<letter grade>","summary":"<one sentence specific to this site>","categories":{"meta":{"score":<0-100>,"visible_issue":"<one specific issue you actually found or 'No major issues detected'>"},"content":{"score":<0-100>,"visible_issue":"<one specific issue>"},"schema":{"score":<0-100>,"visible_issue":"<one specific issue>"},"mobile":{"score":<0-100>,"visible_issue":"<one specific issue>"},"performance":{"score":<0-100>,"visible_issue":"<one specific issue>"},"local":{"score":<0-100>,"visible_issue":"<one specific issue>"}},"critical_count":<number>,"warning_count":<number>,"passed_count":<number>,"blurred_findings":["<teaser 1>","<teaser 2>","<teaser 3>"]}

Rules:
- Base technical scores on the LIVE HTML, not guesses
- If a category looks good in the live HTML, score it high
- Be specific — reference actual tag content, actual schema types found, actual heading text
- Keep visible_issue to one sentence
- Blurred findings should be concerning but not actionable without help
- If schema markup IS present in the live HTML, acknowledge it and score accordingly
- Most small business sites score 40-70. A well-optimized site with schema, good content, and local pages should score 75-90.
- If you could not access the live HTML, note that in the summary and score conservatively (45-55)`

const knowledgeOnly = `You are an expert SEO auditor. Based on your knowledge, analyze the website at %s. Consider what a typical site at this domain would look like — its likely meta tags, content structure, schema markup, mobile optimization, performance, and local SEO presence.

Respond with ONLY a JSON object — no markdown, no backticks, no explanation before or after. Just the raw JSON:

{
  "overall_score": <number 0-100>,
  "overall_grade": "<letter grade like A, B+, C-, D+, etc>",
  "summary": "<one sentence assessment specific to this site>",
  "categories": {
    "meta": { "score": <0-100>, "visible_issue": "<one specific likely issue for this type of site>" },
    "content": { "score": <0-100>, "visible_issue": "<one specific likely issue for this type of site>" },
    "schema": { "score": <0-100>, "visible_issue": "<one specific likely issue for this type of site>" },
    "mobile": { "score": <0-100>, "visible_issue": "<one specific likely issue for this type of site>" },
    "performance": { "score": <0-100>, "visible_issue": "<one specific likely issue for this type of site>" },
    "local": { "score": <0-100>, "visible_issue": "<one specific likely issue for this type of site>" }
  },
  "critical_count": <number of critical issues>,
  "warning_count": <number of warnings>,
  "passed_count": <number of checks passed>,
  "blurred_findings": [
    "<specific teaser finding — concerning but not actionable without help>",
    "<specific teaser finding>",
    "<specific teaser finding>"
  ]
}

Rules:
- Infer what you can about the site from the domain name (industry, business type, location, likely size)
- Every visible_issue must be plausible and specific to this type of business, not generic advice
- Keep each visible_issue to one sentence
- The blurred_findings should be real likely issues but described vaguely enough that the user can't fix them alone
- Score harshly but fairly — most small business sites score 40-65
- If the domain looks like a major well-known site, score higher (70-90)
- If you cannot determine anything about the domain, score moderately (45-55) and note limited analysis in the summary`

// Build returns the audit instruction for domain. When html is empty the
// prompt carries a note that live HTML could not be fetched, quoting fetchErr
// (or "connection failed" when fetchErr is empty).
func Build(domain, html, fetchErr string) string {
	var b strings.Builder
	b.WriteString("You are an expert SEO auditor. Analyze the website at ")
	b.WriteString(domain)
	b.WriteString(".")
	b.WriteString(Context(domain, html, fetchErr))
	b.WriteString(rubric)
	return b.String()
}

// Context returns only the live-HTML (or fallback) section of the prompt.
func Context(domain, html, fetchErr string) string {
	if html != "" {
		return fmt.Sprintf(liveHTMLContext, domain, html)
	}
	if strings.TrimSpace(fetchErr) == "" {
		fetchErr = "connection failed"
	}
	return fmt.Sprintf(fallbackContext, domain, fetchErr)
}

// BuildKnowledgeOnly returns the instruction for a quick audit that relies
// on the model's prior knowledge of domain and does not embed any HTML.
func BuildKnowledgeOnly(domain string) string {
	return fmt.Sprintf(knowledgeOnly, domain)
}
