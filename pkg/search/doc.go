// Package search implements the reverse-image-search client.
//
// A search runs three blocking phases. Load decodes the local image, the
// upload posts it as multipart data and captures the redirect Location,
// and the scrape follows that link, finds the "all sizes" anchor and
// extracts candidate images from the inline scripts of the sizes page.
// The markup markers and the candidate regex come from configuration
// because the remote pages change without notice. FindSizesLink and
// ParseCandidates hold all markup knowledge.
package search
