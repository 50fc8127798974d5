package evidence

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cybershield/internal/models"
)

// Incident is one abusive message as recorded by the escalation tracker.
type Incident struct {
	MessageID int64     `json:"id"`
	Content   string    `json:"content"`
	Score     float64   `json:"abuse_score"`
	Category  string    `json:"abuse_type"`
	Timestamp time.Time `json:"timestamp"`
}

// reportDocument is the JSON member of an evidence archive.
type reportDocument struct {
	ReportInfo struct {
		GeneratedAt time.Time `json:"generated_at"`
		ReportID    string    `json:"report_id"`
		System      string    `json:"system"`
	} `json:"report_info"`
	IncidentDetails struct {
		Reporter     participant `json:"reporter"`
		ReportedUser participant `json:"reported_user"`
		IncidentType string      `json:"incident_type"`
		Severity     string      `json:"severity"`
	} `json:"incident_details"`
	Evidence struct {
		TotalAbusiveMessages int               `json:"total_abusive_messages"`
		Messages             []evidenceMessage `json:"messages"`
	} `json:"evidence"`
	Analysis analysis `json:"analysis"`
}

type participant struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type evidenceMessage struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Content       string    `json:"content"`
	AbuseScore    float64   `json:"abuse_score"`
	AbuseType     string    `json:"abuse_type"`
	EvidenceLevel string    `json:"evidence_level"`
}

type analysis struct {
	AbuseTypesDetected []string  `json:"abuse_types_detected"`
	AverageAbuseScore  float64   `json:"average_abuse_score"`
	HighestAbuseScore  float64   `json:"highest_abuse_score"`
	FirstIncidentAt    time.Time `json:"first_incident_at"`
	LastIncidentAt     time.Time `json:"last_incident_at"`
}

// Packager bundles incident data, a rendered transcript image and a text
// summary into a single zip archive. Rendering is best-effort: if the
// renderer fails, the archive is written without the image member.
type Packager struct {
	renderer  Renderer
	outputDir string
	logger    *zap.Logger
}

func NewPackager(renderer Renderer, outputDir string, logger *zap.Logger) *Packager {
	return &Packager{
		renderer:  renderer,
		outputDir: outputDir,
		logger:    logger,
	}
}

// Package builds the archive for the given incidents and returns its path.
// Aggregate stats are computed over exactly the incidents passed in, not the
// full pair history.
func (p *Packager) Package(sender, receiver *models.User, incidents []Incident) (string, error) {
	if len(incidents) == 0 {
		return "", fmt.Errorf("no incidents to package")
	}

	if err := os.MkdirAll(p.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports dir: %w", err)
	}

	now := time.Now()
	stamp := now.Format("20060102_150405")
	reportID := fmt.Sprintf("CR_%d_%d_%s", sender.ID, receiver.ID, stamp)
	doc := buildDocument(reportID, now, sender, receiver, incidents)

	archiveName := fmt.Sprintf("cybershield_report_%s_%s.zip", stamp, uuid.NewString()[:8])
	archivePath := filepath.Join(p.outputDir, archiveName)

	f, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	jsonName := fmt.Sprintf("report_data_%s.json", stamp)
	jsonBytes, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		zw.Close()
		os.Remove(archivePath)
		return "", fmt.Errorf("failed to marshal report document: %w", err)
	}
	if err := writeZipMember(zw, jsonName, jsonBytes); err != nil {
		zw.Close()
		os.Remove(archivePath)
		return "", err
	}

	imageName := p.renderTranscript(zw, incidents, sender, receiver, stamp)

	readme := buildReadme(doc, jsonName, imageName)
	if err := writeZipMember(zw, "README.txt", []byte(readme)); err != nil {
		zw.Close()
		os.Remove(archivePath)
		return "", err
	}

	if err := zw.Close(); err != nil {
		os.Remove(archivePath)
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	return archivePath, nil
}

// renderTranscript renders the transcript image and adds it to the archive.
// Any failure is logged and the image member is omitted; the returned name is
// empty in that case.
func (p *Packager) renderTranscript(zw *zip.Writer, incidents []Incident, sender, receiver *models.User, stamp string) string {
	imagePath, err := p.renderer.Render(incidents, sender.FullName, receiver.FullName)
	if err != nil {
		p.logger.Warn("Failed to render transcript, archive will omit the image", zap.Error(err))
		return ""
	}
	defer os.Remove(imagePath)

	data, err := os.ReadFile(imagePath)
	if err != nil {
		p.logger.Warn("Failed to read rendered transcript", zap.String("path", imagePath), zap.Error(err))
		return ""
	}

	name := fmt.Sprintf("chat_evidence_%s.png", stamp)
	if err := writeZipMember(zw, name, data); err != nil {
		p.logger.Warn("Failed to add transcript to archive", zap.Error(err))
		return ""
	}
	return name
}

func buildDocument(reportID string, now time.Time, sender, receiver *models.User, incidents []Incident) reportDocument {
	var doc reportDocument
	doc.ReportInfo.GeneratedAt = now
	doc.ReportInfo.ReportID = reportID
	doc.ReportInfo.System = "CyberShield v1.0"

	doc.IncidentDetails.Reporter = participant{ID: receiver.ID, Username: receiver.Username, FullName: receiver.FullName, Email: receiver.Email}
	doc.IncidentDetails.ReportedUser = participant{ID: sender.ID, Username: sender.Username, FullName: sender.FullName, Email: sender.Email}
	doc.IncidentDetails.IncidentType = "Abusive Messaging"
	doc.IncidentDetails.Severity = overallSeverity(incidents)

	doc.Evidence.TotalAbusiveMessages = len(incidents)
	doc.Analysis = computeAnalysis(incidents)

	for _, inc := range incidents {
		doc.Evidence.Messages = append(doc.Evidence.Messages, evidenceMessage{
			ID:            inc.MessageID,
			Timestamp:     inc.Timestamp,
			Content:       inc.Content,
			AbuseScore:    inc.Score,
			AbuseType:     inc.Category,
			EvidenceLevel: evidenceLevel(inc.Score),
		})
	}
	return doc
}

func computeAnalysis(incidents []Incident) analysis {
	a := analysis{
		FirstIncidentAt: incidents[0].Timestamp,
		LastIncidentAt:  incidents[0].Timestamp,
	}

	total := 0.0
	seen := make(map[string]bool)
	for _, inc := range incidents {
		total += inc.Score
		if inc.Score > a.HighestAbuseScore {
			a.HighestAbuseScore = inc.Score
		}
		if !seen[inc.Category] {
			seen[inc.Category] = true
			a.AbuseTypesDetected = append(a.AbuseTypesDetected, inc.Category)
		}
		if inc.Timestamp.Before(a.FirstIncidentAt) {
			a.FirstIncidentAt = inc.Timestamp
		}
		if inc.Timestamp.After(a.LastIncidentAt) {
			a.LastIncidentAt = inc.Timestamp
		}
	}
	a.AverageAbuseScore = math.Round(total/float64(len(incidents))*100) / 100
	return a
}

func overallSeverity(incidents []Incident) string {
	for _, inc := range incidents {
		if inc.Score > 8 {
			return "HIGH"
		}
	}
	return "MEDIUM"
}

func evidenceLevel(score float64) string {
	switch {
	case score > 8:
		return "HIGH"
	case score > 6:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

func buildReadme(doc reportDocument, jsonName, imageName string) string {
	var b strings.Builder
	b.WriteString("CYBERSHIELD EVIDENCE REPORT\n")
	b.WriteString("============================\n\n")
	fmt.Fprintf(&b, "Report ID: %s\n", doc.ReportInfo.ReportID)
	fmt.Fprintf(&b, "Generated: %s\n\n", doc.ReportInfo.GeneratedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("CONTENTS:\n---------\n")
	fmt.Fprintf(&b, "1. %s - Complete incident data in JSON format\n", jsonName)
	if imageName != "" {
		fmt.Fprintf(&b, "2. %s - Screenshot of abusive messages\n", imageName)
	}
	b.WriteString("README.txt - This file\n\n")

	b.WriteString("INCIDENT SUMMARY:\n----------------\n")
	fmt.Fprintf(&b, "Reporter: %s (%s)\n", doc.IncidentDetails.Reporter.FullName, doc.IncidentDetails.Reporter.Username)
	fmt.Fprintf(&b, "Reported User: %s (%s)\n", doc.IncidentDetails.ReportedUser.FullName, doc.IncidentDetails.ReportedUser.Username)
	fmt.Fprintf(&b, "Total Abusive Messages: %d\n", doc.Evidence.TotalAbusiveMessages)
	fmt.Fprintf(&b, "Severity Level: %s\n\n", doc.IncidentDetails.Severity)

	b.WriteString("ABUSE TYPES DETECTED:\n--------------------\n")
	for _, t := range doc.Analysis.AbuseTypesDetected {
		fmt.Fprintf(&b, "- %s\n", t)
	}

	b.WriteString("\nLEGAL NOTICE:\n------------\n")
	b.WriteString("This report contains evidence of potentially harmful online behavior.\n")
	b.WriteString("The content has been automatically analyzed by CyberShield.\n")
	b.WriteString("This report can be used for educational, safety, or legal purposes.\n")
	return b.String()
}

func writeZipMember(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create archive member %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write archive member %s: %w", name, err)
	}
	return nil
}
