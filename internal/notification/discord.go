package notification

import (
	"fmt"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Message is a run report posted to Discord when DISCORD_TOKEN is set
type Message struct {
	Title       string
	Description string
	Outcome     string
	Fields      map[string]string
	Timestamp   time.Time
}

// Run outcomes
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailure = "failure"
)

type ReportClient struct {
	sg *discordgo.Session
}

func NewReportClient() (*ReportClient, error) {
	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN environment variable not set")
	}

	sg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	if err := sg.Open(); err != nil {
		return nil, err
	}

	return &ReportClient{sg: sg}, nil
}

func (c *ReportClient) outcomeColor(outcome string) int {
	switch outcome {
	case OutcomeSuccess:
		return 0x2ECC71
	case OutcomePartial:
		return 0xFF8C00
	case OutcomeFailure:
		return 0xFF0000
	default:
		return 0x808080
	}
}

func (c *ReportClient) Send(msg Message) error {
	if c.sg == nil {
		return fmt.Errorf("Discord client not initialized")
	}

	channelID := os.Getenv("DISCORD_CHANNEL_ID")
	if channelID == "" {
		return fmt.Errorf("DISCORD_CHANNEL_ID not set")
	}

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	embed := &discordgo.MessageEmbed{
		Title:       msg.Title,
		Description: msg.Description,
		Color:       c.outcomeColor(msg.Outcome),
		Timestamp:   msg.Timestamp.Format(time.RFC3339),
	}

	if len(msg.Fields) > 0 {
		fields := make([]*discordgo.MessageEmbedField, 0, len(msg.Fields))
		for key, value := range msg.Fields {
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:   key,
				Value:  value,
				Inline: true,
			})
		}
		embed.Fields = fields
	}

	_, err := c.sg.ChannelMessageSendEmbed(channelID, embed)
	return err
}

func (c *ReportClient) Close() error {
	if c.sg != nil {
		return c.sg.Close()
	}
	return nil
}
