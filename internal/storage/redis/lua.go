package redis

const (
	luaAcquireHold = `
		-- Take a slot hold together with its owner key
		-- KEYS[1] = slot key
		-- KEYS[2] = owner key
		-- ARGV[1] = booking id
		-- ARGV[2] = ttl in milliseconds
		-- Returns: 1 if the booking holds the slot, 0 otherwise

		if redis.call('SET', KEYS[1], 'HELD', 'NX', 'PX', ARGV[2]) then
			redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[2])
			return 1
		end
		if redis.call('GET', KEYS[1]) == 'HELD' and redis.call('GET', KEYS[2]) == ARGV[1] then
			return 1
		end
		return 0
		`

	luaPromoteHold = `
		-- Turn a hold into a booking with no expiry
		-- KEYS[1] = slot key
		-- KEYS[2] = owner key
		-- ARGV[1] = booking id
		-- Returns: 1 if promoted (or already promoted by this booking), 0 otherwise

		if redis.call('GET', KEYS[2]) ~= ARGV[1] then
			return 0
		end
		local cur = redis.call('GET', KEYS[1])
		if cur ~= 'HELD' and cur ~= 'BOOKED' then
			return 0
		end
		redis.call('SET', KEYS[1], 'BOOKED')
		redis.call('PERSIST', KEYS[2])
		return 1
		`

	luaDemoteSlot = `
		-- Turn a booking back into a hold after its confirmation was rolled back
		-- KEYS[1] = slot key
		-- KEYS[2] = owner key
		-- ARGV[1] = booking id
		-- ARGV[2] = ttl in milliseconds
		-- Returns: 1 if the slot is HELD again, 0 otherwise

		if redis.call('GET', KEYS[2]) ~= ARGV[1] then
			return 0
		end
		local cur = redis.call('GET', KEYS[1])
		if cur ~= 'HELD' and cur ~= 'BOOKED' then
			return 0
		end
		redis.call('SET', KEYS[1], 'HELD', 'PX', ARGV[2])
		redis.call('PEXPIRE', KEYS[2], ARGV[2])
		return 1
		`

	luaReleaseSlot = `
		-- Free a slot only while the owner key still names the booking
		-- KEYS[1] = slot key
		-- KEYS[2] = owner key
		-- ARGV[1] = booking id
		-- Returns: 1 if released, 0 if the slot belongs to someone else or is gone

		if redis.call('GET', KEYS[2]) ~= ARGV[1] then
			return 0
		end
		redis.call('DEL', KEYS[1], KEYS[2])
		return 1
		`

	luaConsumeNotification = `
		-- Atomically acknowledge and delete a stream entry
		-- KEYS[1] = stream key
		-- ARGV[1] = consumer group
		-- ARGV[2] = stream entry ID
		-- Returns: {ackCount, delCount}

		local acked = redis.call('XACK', KEYS[1], ARGV[1], ARGV[2])
		local deleted = redis.call('XDEL', KEYS[1], ARGV[2])
		return {acked, deleted}
		`
)
