package entity

import "strings"

type Channel int16

const (
	ChannelUnknown Channel = 0
	ChannelSMS     Channel = 1
	ChannelCall    Channel = 2
)

func ChannelFromString(raw string) Channel {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sms":
		return ChannelSMS
	case "call", "voice":
		return ChannelCall
	default:
		return ChannelUnknown
	}
}

func (c Channel) String() string {
	switch c {
	case ChannelSMS:
		return "sms"
	case ChannelCall:
		return "call"
	default:
		return "unknown"
	}
}

type DeliveryStatus int16

const (
	DeliveryStatusUnknown    DeliveryStatus = 0
	DeliveryStatusProcessing DeliveryStatus = 1
	DeliveryStatusSent       DeliveryStatus = 2
	DeliveryStatusFailed     DeliveryStatus = 3
)

func DeliveryStatusFromString(raw string) DeliveryStatus {
	switch raw {
	case "processing":
		return DeliveryStatusProcessing
	case "sent":
		return DeliveryStatusSent
	case "failed":
		return DeliveryStatusFailed
	default:
		return DeliveryStatusUnknown
	}
}

func (s DeliveryStatus) String() string {
	switch s {
	case DeliveryStatusProcessing:
		return "processing"
	case DeliveryStatusSent:
		return "sent"
	case DeliveryStatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
