package workflow

// Action 生命周期动作
type Action string

const (
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionReturn   Action = "return"
	ActionPause    Action = "pause"
	ActionResume   Action = "resume"
	ActionCancel   Action = "cancel"
	ActionResubmit Action = "resubmit"
)

// Actions 全部由外部触发的动作
var Actions = []Action{
	ActionApprove,
	ActionReject,
	ActionReturn,
	ActionPause,
	ActionResume,
	ActionCancel,
	ActionResubmit,
}

// transitions 状态 × 动作 → 目标状态
// 终态不出现在表中; active → completed 只能由进度计算触发,不是动作
var transitions = map[ProcessStatus]map[Action]ProcessStatus{
	StatusPendingApproval: {
		ActionApprove: StatusActive,
		ActionReject:  StatusRejected,
		ActionReturn:  StatusReturned,
		ActionCancel:  StatusCancelled,
	},
	StatusActive: {
		ActionPause:  StatusOnHold,
		ActionCancel: StatusCancelled,
	},
	StatusOnHold: {
		ActionResume: StatusActive,
		ActionCancel: StatusCancelled,
	},
	StatusReturned: {
		ActionResubmit: StatusPendingApproval,
		ActionCancel:   StatusCancelled,
	},
}

// ParseAction 校验动作名称
func ParseAction(s string) (Action, error) {
	for _, a := range Actions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", validation("unknown action %q", s)
}

// NextStatus 查表得到目标状态,不允许的转换返回 InvalidTransition
func NextStatus(from ProcessStatus, action Action) (ProcessStatus, error) {
	if from.IsTerminal() {
		return "", invalidTransition("process is %s, no further transition is allowed", from)
	}
	to, ok := transitions[from][action]
	if !ok {
		return "", invalidTransition("cannot %s a process in status %s", action, from)
	}
	return to, nil
}

// AllowedActions 返回当前状态下可执行的动作(按 Actions 顺序)
func AllowedActions(from ProcessStatus) []Action {
	var allowed []Action
	for _, a := range Actions {
		if _, ok := transitions[from][a]; ok {
			allowed = append(allowed, a)
		}
	}
	return allowed
}

// requiresReason 驳回和退回必须填写原因
func requiresReason(action Action) bool {
	return action == ActionReject || action == ActionReturn
}
