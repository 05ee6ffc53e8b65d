package models

import "fmt"

// Object layout for a project. Every artifact lives under the project ID so
// re-uploads of the same filename never collide.

func SourcePath(p *Project) string {
	return fmt.Sprintf("%s/source/%s", p.ID, p.Filename)
}

func PageTextPath(projectID string, page int) string {
	return fmt.Sprintf("%s/texts/page_%03d.txt", projectID, page)
}

func ScriptPath(projectID string, chapterNumber int) string {
	return fmt.Sprintf("%s/scripts/chapter_%03d_script.txt", projectID, chapterNumber)
}

func SegmentPath(projectID string, chapterNumber, index int) string {
	return fmt.Sprintf("%s/audio/chapter_%03d_%d_script.wav", projectID, chapterNumber, index)
}

func ChapterAudioPath(projectID string, chapterNumber int) string {
	return fmt.Sprintf("%s/completed_audio/chapter_%03d_output.wav", projectID, chapterNumber)
}

// ArchiveEntryName is the file name of a chapter inside a download archive.
func ArchiveEntryName(chapterNumber int) string {
	return fmt.Sprintf("chapter_%03d.wav", chapterNumber)
}
