package fix

// SOH is the field separator byte of the tag=value encoding.
const SOH byte = 0x01

// SendingTimeLayout is the UTC timestamp format carried in tag 52.
const SendingTimeLayout = "20060102-15:04:05.000"

// Standard tags the engine reads or stamps.
const (
	TagBeginString   = 8
	TagBodyLength    = 9
	TagCheckSum      = 10
	TagClOrdID       = 11
	TagMsgSeqNum     = 34
	TagMsgType       = 35
	TagSenderCompID  = 49
	TagSendingTime   = 52
	TagTargetCompID  = 56
	TagText          = 58
	TagEncryptMethod = 98
	TagHeartBtInt    = 108
	TagTestReqID     = 112
	TagUsername      = 553
	TagPassword      = 554
)

// Message types the engine sends or recognizes.
const (
	MsgTypeHeartbeat       = "0"
	MsgTypeTestRequest     = "1"
	MsgTypeReject          = "3"
	MsgTypeLogout          = "5"
	MsgTypeExecutionReport = "8"
	MsgTypeLogon           = "A"
	MsgTypeNewOrderSingle  = "D"
)

// msgTypeNames labels the administrative and common order-flow types
// for display.
var msgTypeNames = map[string]string{
	MsgTypeHeartbeat:       "Heartbeat",
	MsgTypeTestRequest:     "TestRequest",
	"2":                    "ResendRequest",
	MsgTypeReject:          "Reject",
	"4":                    "SequenceReset",
	MsgTypeLogout:          "Logout",
	MsgTypeExecutionReport: "ExecutionReport",
	"9":                    "OrderCancelReject",
	MsgTypeLogon:           "Logon",
	MsgTypeNewOrderSingle:  "NewOrderSingle",
	"F":                    "OrderCancelRequest",
	"G":                    "OrderCancelReplaceRequest",
	"j":                    "BusinessMessageReject",
}

// MsgTypeName returns the display name of a message type, or empty when
// the type is not one the engine knows about.
func MsgTypeName(msgType string) string {
	return msgTypeNames[msgType]
}
