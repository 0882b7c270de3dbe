package consts

const (
	COMP_DAO_REGISTRATION     = "registration_dao"
	COMP_SVC_LAUNCHER         = "launcher"
	COMP_SVC_RESURRECTOR      = "resurrector"
	COMP_SVC_EVENT_SUBSCRIBER = "event_subscriber"
	COMP_CTRL_RESURRECTOR     = "resurrector_ctrl"
)

