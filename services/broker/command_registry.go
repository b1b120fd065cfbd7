package broker

import (
	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/services/broker/commands"
)

type registryKey struct {
	ecosystem params.Ecosystem
	method    string
}

// CommandRegistry is the dispatch table: one handler per (ecosystem, method).
type CommandRegistry struct {
	commands map[registryKey]commands.RPCCommand
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[registryKey]commands.RPCCommand),
	}
}

func (r *CommandRegistry) Register(ecosystem params.Ecosystem, method string, command commands.RPCCommand) {
	r.commands[registryKey{ecosystem: ecosystem, method: method}] = command
}

func (r *CommandRegistry) GetCommand(ecosystem params.Ecosystem, method string) (commands.RPCCommand, bool) {
	command, exists := r.commands[registryKey{ecosystem: ecosystem, method: method}]
	return command, exists
}
