package book

import (
	"fmt"
	"time"
)

// artifact returns the bytes for a version, or nil if absent.
func (p *Page) artifact(v ActiveVersion) []byte {
	switch v {
	case VersionOriginal:
		return p.OriginalImage
	case VersionEnhanced:
		return p.EnhancedImage
	case VersionFinalLetter:
		return p.FinalLetterImage
	}
	return nil
}

// ResolveActiveVersion returns the version that is actually displayed.
// When the selected artifact is absent it falls back to the next-best present
// one: final letter, then enhanced, then original. The empty string means
// the page has no image at all.
func (p *Page) ResolveActiveVersion() ActiveVersion {
	if len(p.artifact(p.ActiveVersion)) > 0 {
		return p.ActiveVersion
	}
	for _, v := range []ActiveVersion{VersionFinalLetter, VersionEnhanced, VersionOriginal} {
		if len(p.artifact(v)) > 0 {
			return v
		}
	}
	return ""
}

// ActiveImage returns the image bytes to display or export.
func (p *Page) ActiveImage() []byte {
	v := p.ResolveActiveVersion()
	if v == "" {
		return nil
	}
	return p.artifact(v)
}

// SetActiveVersion selects a version. The artifact must be present.
func (p *Page) SetActiveVersion(v ActiveVersion) error {
	if !v.Valid() {
		return fmt.Errorf("unknown version: %q", v)
	}
	if len(p.artifact(v)) == 0 {
		return fmt.Errorf("page %d has no %s image", p.Index, v)
	}
	p.ActiveVersion = v
	return nil
}

// ClearArtifacts drops every image together with the derived timing and
// resets the active version. It is the only path that removes images.
func (p *Page) ClearArtifacts() {
	p.OriginalImage = nil
	p.EnhancedImage = nil
	p.FinalLetterImage = nil
	p.ActiveVersion = VersionOriginal
	p.GenerationMs = 0
	p.EnhancementMs = 0
	p.GeneratedAt = nil
	p.EnhancedAt = nil
	p.ApprovedAt = nil
	p.Warning = ""
}

// ClearEnhancement drops only the enhancement artifacts, keeping the original.
func (p *Page) ClearEnhancement() {
	p.EnhancedImage = nil
	p.FinalLetterImage = nil
	p.EnhancementMs = 0
	p.EnhancedAt = nil
	if p.ActiveVersion != VersionOriginal {
		p.ActiveVersion = VersionOriginal
	}
}

// Approve marks a page with an image as approved.
func (p *Page) Approve(now time.Time) error {
	if !p.Status.HasImage() || len(p.OriginalImage) == 0 {
		return fmt.Errorf("page %d has no image to approve", p.Index)
	}
	if p.Status.InFlight() {
		return fmt.Errorf("page %d is %s", p.Index, p.Status)
	}
	p.Status = PageApproved
	p.ApprovedAt = &now
	return nil
}
